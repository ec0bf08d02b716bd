// Package session owns the per-buyer booking state between login and
// logout and drives it through the booking stages.
package session

import (
	"time"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// Stage is where a buyer is in the booking flow.
type Stage string

const (
	StageUnauthenticated Stage = "unauthenticated"
	StageTermsPending    Stage = "terms_pending"
	StageLocked          Stage = "locked"
	StageGated           Stage = "gated"
	StageClosed          Stage = "closed"
	StageSelecting       Stage = "selecting"
	StageConfirming      Stage = "confirming"
	// StageConfirmed means seats were booked and tickets remain.
	StageConfirmed Stage = "confirmed"
	// StageConfirmedDone means seats were booked and no ticket remains.
	StageConfirmedDone Stage = "confirmed_done"
	// StageHalted blocks state changes until an operator resolves the
	// incident or the buyer logs out.
	StageHalted Stage = "halted"
)

// Gate is the booking window. A zero OpenAt means open from the start; a
// zero CloseAt means never closing.
type Gate struct {
	OpenAt        time.Time
	CloseAt       time.Time
	RefreshBefore time.Duration // client poll interval while gated
	RefreshAfter  time.Duration // client poll interval once open
}

// BeforeOpen reports whether now is earlier than the opening time.
func (g Gate) BeforeOpen(now time.Time) bool {
	return !g.OpenAt.IsZero() && now.Before(g.OpenAt)
}

// AfterClose reports whether the cutoff has passed.
func (g Gate) AfterClose(now time.Time) bool {
	return !g.CloseAt.IsZero() && !now.Before(g.CloseAt)
}

// Open reports whether seats can be picked at now.
func (g Gate) Open(now time.Time) bool {
	return !g.BeforeOpen(now) && !g.AfterClose(now)
}

// RefreshInterval is the poll hint for clients at now.
func (g Gate) RefreshInterval(now time.Time) time.Duration {
	if g.BeforeOpen(now) {
		return g.RefreshBefore
	}
	return g.RefreshAfter
}

// StageOf derives the stage of s at now. busy is the activity currently
// running on the session, if any.
func StageOf(s *model.Session, g Gate, now time.Time, busy string) Stage {
	switch {
	case s == nil:
		return StageUnauthenticated
	case s.Halted:
		return StageHalted
	case !s.TermsAccepted:
		return StageTermsPending
	case busy == ActivityConfirm:
		return StageConfirming
	case s.Confirmed && s.Remaining() > 0:
		return StageConfirmed
	case s.Confirmed:
		return StageConfirmedDone
	case s.Remaining() <= 0:
		return StageLocked
	case g.BeforeOpen(now):
		return StageGated
	case g.AfterClose(now):
		return StageClosed
	}
	return StageSelecting
}

// Message is the text shown to the buyer for a stage.
func Message(st Stage, s *model.Session) string {
	switch st {
	case StageUnauthenticated:
		return "Enter your name, contact number and receipt number."
	case StageTermsPending:
		return "Please read and accept the terms and conditions."
	case StageLocked:
		return "You have already used up all your tickets. To purchase more, contact the admin team."
	case StageGated:
		return "Seat selection has not opened yet."
	case StageClosed:
		return "Seat selection is closed."
	case StageSelecting:
		return "Pick your seats and confirm."
	case StageConfirming:
		return "Your booking is being confirmed."
	case StageConfirmed:
		return "Booking confirmed. You still have tickets remaining; you may book the rest or log out."
	case StageConfirmedDone:
		return "Booking confirmed. You have used all your tickets; access is now closed."
	case StageHalted:
		if s != nil && s.IncidentID != "" {
			return "Your booking needs manual checking by the admins. Quote incident " + s.IncidentID + "."
		}
		return "Your booking needs manual checking by the admins."
	}
	return ""
}
