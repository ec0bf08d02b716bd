package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/service"
)

var (
	// ErrWrongStage is matched by every *StageError.
	ErrWrongStage = errors.New("action not allowed at this stage")
	// ErrSelectionFull means the selection already uses every remaining
	// ticket.
	ErrSelectionFull = errors.New("selection already uses all remaining tickets")
	// ErrMissingDetails means a login lacked name, contact or receipt.
	ErrMissingDetails = errors.New("name, contact and receipt are required")
)

// StageError reports an action attempted in a stage that does not allow it.
type StageError struct {
	Action string
	Stage  Stage
}

func (e *StageError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.Stage)
}

// Is makes errors.Is(err, ErrWrongStage) hold.
func (e *StageError) Is(target error) bool { return target == ErrWrongStage }

// View is the buyer-facing state of a session.
type View struct {
	SessionID      string     `json:"session_id"`
	Stage          Stage      `json:"stage"`
	Message        string     `json:"message"`
	BuyerName      string     `json:"buyer_name"`
	Contact        string     `json:"contact"`
	Receipt        string     `json:"receipt"`
	TicketsAllowed int        `json:"tickets_allowed"`
	TicketsUsed    int        `json:"tickets_used"`
	Remaining      int        `json:"remaining"`
	QuotaLeft      int        `json:"quota_left"`
	Unlimited      bool       `json:"unlimited"`
	SelectedSeats  []string   `json:"selected_seats"`
	LastBooked     []string   `json:"last_booked,omitempty"`
	IncidentID     string     `json:"incident_id,omitempty"`
	OpensAt        *time.Time `json:"opens_at,omitempty"`
	ClosesAt       *time.Time `json:"closes_at,omitempty"`
	RefreshAfterMS int64      `json:"refresh_after_ms"`
	ExpiresAt      time.Time  `json:"expires_at"`
}

// Controller drives sessions through the booking flow on top of the
// booking core.
type Controller struct {
	sessions  *Manager
	resolver  *service.Resolver
	inventory *service.Inventory
	booker    *service.Booker
	incidents *service.IncidentLog
	gate      Gate
	now       func() time.Time
}

// NewController wires the flow. All dependencies are required.
func NewController(sessions *Manager, resolver *service.Resolver, inventory *service.Inventory,
	booker *service.Booker, incidents *service.IncidentLog, gate Gate) *Controller {
	if sessions == nil || resolver == nil || inventory == nil || booker == nil || incidents == nil {
		panic("nil dependency passed to NewController")
	}
	return &Controller{
		sessions:  sessions,
		resolver:  resolver,
		inventory: inventory,
		booker:    booker,
		incidents: incidents,
		gate:      gate,
		now:       time.Now,
	}
}

func (c *Controller) view(s model.Session, busy string) View {
	now := c.now()
	st := StageOf(&s, c.gate, now, busy)
	v := View{
		SessionID:      s.ID,
		Stage:          st,
		Message:        Message(st, &s),
		BuyerName:      s.BuyerName,
		Contact:        s.Contact,
		Receipt:        s.Receipt,
		TicketsAllowed: s.TicketsAllowed,
		TicketsUsed:    s.TicketsUsed,
		Remaining:      max(0, s.Remaining()),
		QuotaLeft:      max(0, s.QuotaLeft()),
		Unlimited:      s.Quota.Unlimited,
		SelectedSeats:  s.SelectedSeats,
		LastBooked:     s.LastBooked,
		IncidentID:     s.IncidentID,
		RefreshAfterMS: c.gate.RefreshInterval(now).Milliseconds(),
		ExpiresAt:      s.ExpiresAt,
	}
	if v.SelectedSeats == nil {
		v.SelectedSeats = []string{}
	}
	if !c.gate.OpenAt.IsZero() {
		t := c.gate.OpenAt
		v.OpensAt = &t
	}
	if !c.gate.CloseAt.IsZero() {
		t := c.gate.CloseAt
		v.ClosesAt = &t
	}
	return v
}

// Login matches the buyer against the whitelist and opens a session in
// the terms stage.
func (c *Controller) Login(ctx context.Context, name, contact, receipt string) (View, error) {
	name = strings.TrimSpace(name)
	contact = strings.TrimSpace(contact)
	receipt = strings.TrimSpace(receipt)
	if name == "" || contact == "" || receipt == "" {
		return View{}, ErrMissingDetails
	}
	e, err := c.resolver.Resolve(ctx, name, receipt)
	if err != nil {
		return View{}, err
	}
	s := c.sessions.Create(model.Session{
		BuyerName:      name,
		Contact:        contact,
		Receipt:        receipt,
		Quota:          e.Ref(),
		TicketsAllowed: e.TotalAllowed,
		TicketsUsed:    e.TotalUsed,
	})
	log.Printf("session: %s opened for receipt %s", s.ID, receipt)
	return c.view(s, ""), nil
}

// Logout drops the session entirely.
func (c *Controller) Logout(id string) {
	c.sessions.Delete(id)
}

// State re-reads the buyer's quota and returns the current view. A ledger
// failure falls back to the last known counters.
func (c *Controller) State(ctx context.Context, id string) (View, error) {
	cur, busy, err := c.sessions.Get(id)
	if err != nil {
		return View{}, err
	}
	if busy != "" {
		// a state change is running; report it without waiting
		return c.view(cur, busy), nil
	}
	s, err := c.sessions.With(id, ActivityRefresh, func(s *model.Session) error {
		if s.Halted {
			return nil
		}
		if _, err := c.booker.RefreshQuota(ctx, s); err != nil {
			log.Printf("session: refresh quota for %s failed: %v", s.ID, err)
		}
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return c.view(s, ""), nil
}

// Peek returns the current view without touching the ledger.
func (c *Controller) Peek(id string) (View, error) {
	s, busy, err := c.sessions.Get(id)
	if err != nil {
		return View{}, err
	}
	return c.view(s, busy), nil
}

// Touch slides the session's expiry forward without touching the ledger.
func (c *Controller) Touch(id string) (View, error) {
	s, err := c.sessions.With(id, ActivityRefresh, func(*model.Session) error { return nil })
	if err != nil {
		return View{}, err
	}
	return c.view(s, ""), nil
}

// AcceptTerms moves the session past the terms stage.
func (c *Controller) AcceptTerms(id string) (View, error) {
	s, err := c.sessions.With(id, ActivitySelect, func(s *model.Session) error {
		if s.Halted {
			return service.ErrSessionHalted
		}
		s.TermsAccepted = true
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return c.view(s, ""), nil
}

// canPick reports whether seats may be selected in stage st.
func canPick(st Stage) bool {
	return st == StageSelecting || st == StageConfirmed
}

// Toggle adds seatID to the selection or removes it when already there.
// Adding needs an available seat and a free ticket. Picking more seats
// after a confirm returns the session to selection.
func (c *Controller) Toggle(ctx context.Context, id, seatID string) (View, error) {
	seatID = strings.TrimSpace(seatID)
	s, err := c.sessions.With(id, ActivitySelect, func(s *model.Session) error {
		if s.Halted {
			return service.ErrSessionHalted
		}
		now := c.now()
		st := StageOf(s, c.gate, now, "")
		if !canPick(st) {
			return &StageError{Action: "select seats", Stage: st}
		}
		if !c.gate.Open(now) {
			return &StageError{Action: "select seats", Stage: StageClosed}
		}
		if s.IsSelected(seatID) {
			s.SelectedSeats = removeSeat(s.SelectedSeats, seatID)
			return nil
		}
		seat, err := c.findSeat(ctx, seatID)
		if err != nil {
			return err
		}
		if !seat.IsAvailable() {
			return service.ErrSeatTaken
		}
		if len(s.SelectedSeats) >= s.Remaining() {
			return ErrSelectionFull
		}
		s.SelectedSeats = append(s.SelectedSeats, seatID)
		s.Confirmed = false
		return nil
	})
	if errors.Is(err, ErrNoSession) {
		return View{}, err
	}
	return c.view(s, ""), err
}

func (c *Controller) findSeat(ctx context.Context, seatID string) (model.Seat, error) {
	seats, err := c.inventory.List(ctx, service.SeatFilter{})
	if err != nil {
		return model.Seat{}, err
	}
	for _, s := range seats {
		if s.SeatID == seatID {
			return s, nil
		}
	}
	return model.Seat{}, service.ErrSeatNotFound
}

func removeSeat(ids []string, seatID string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != seatID {
			out = append(out, id)
		}
	}
	return out
}

// Reconsider empties the selection and drops the display cache.
func (c *Controller) Reconsider(ctx context.Context, id string) (View, error) {
	s, err := c.sessions.With(id, ActivitySelect, func(s *model.Session) error {
		if s.Halted {
			return service.ErrSessionHalted
		}
		s.SelectedSeats = nil
		return nil
	})
	if err != nil {
		return View{}, err
	}
	c.inventory.Invalidate(ctx)
	return c.view(s, ""), nil
}

// Confirm books the selection. The result is returned alongside errors
// that still carry useful seat lists (nothing booked, partial commit).
func (c *Controller) Confirm(ctx context.Context, id string) (View, service.ConfirmResult, error) {
	var res service.ConfirmResult
	s, err := c.sessions.With(id, ActivityConfirm, func(s *model.Session) error {
		if s.Halted {
			return service.ErrSessionHalted
		}
		if st := StageOf(s, c.gate, c.now(), ""); st != StageSelecting {
			return &StageError{Action: "confirm", Stage: st}
		}
		var err error
		res, err = c.booker.Confirm(ctx, s)
		return err
	})
	if errors.Is(err, ErrNoSession) {
		return View{}, res, err
	}
	return c.view(s, ""), res, err
}

// ChangeSeats gives back every seat the buyer holds so they can pick
// again. Allowed after a confirm or when the quota is used up, until
// booking closes.
func (c *Controller) ChangeSeats(ctx context.Context, id string) (View, service.ChangeResult, error) {
	var res service.ChangeResult
	s, err := c.sessions.With(id, ActivityChange, func(s *model.Session) error {
		if s.Halted {
			return service.ErrSessionHalted
		}
		now := c.now()
		st := StageOf(s, c.gate, now, "")
		if st != StageConfirmed && st != StageConfirmedDone && st != StageLocked {
			return &StageError{Action: "change seats", Stage: st}
		}
		if c.gate.AfterClose(now) {
			return &StageError{Action: "change seats", Stage: StageClosed}
		}
		var err error
		res, err = c.booker.ChangeSeats(ctx, s)
		return err
	})
	if errors.Is(err, ErrNoSession) {
		return View{}, res, err
	}
	return c.view(s, ""), res, err
}

// Incidents lists recorded incidents, newest first.
func (c *Controller) Incidents(openOnly bool) []service.Incident {
	return c.incidents.List(openOnly)
}

// ResolveIncident closes an incident and lifts the halt from the sessions
// waiting on it.
func (c *Controller) ResolveIncident(id string) (service.Incident, int, error) {
	in, err := c.incidents.Resolve(id)
	if err != nil {
		return service.Incident{}, 0, err
	}
	n := c.sessions.ClearHalt(id)
	log.Printf("session: incident %s resolved, %d session(s) released", id, n)
	return in, n, nil
}
