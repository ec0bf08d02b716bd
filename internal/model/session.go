package model

import "time"

// Session is the per-buyer state between login and logout. It is a cache of
// ledger state; quota decisions always re-read the ledger.
type Session struct {
	ID             string
	BuyerName      string
	Contact        string
	Receipt        string
	Quota          QuotaRef
	TicketsAllowed int
	TicketsUsed    int
	SelectedSeats  []string
	TermsAccepted  bool
	Confirmed      bool
	LastBooked     []string
	Halted         bool
	HaltReason     string
	IncidentID     string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Remaining is the quota left according to the session's last refresh.
func (s *Session) Remaining() int {
	if s.Quota.Unlimited {
		return UnlimitedRemaining
	}
	return s.TicketsAllowed - s.TicketsUsed
}

// QuotaLeft is Remaining minus seats currently selected.
func (s *Session) QuotaLeft() int {
	return s.Remaining() - len(s.SelectedSeats)
}

// IsSelected reports whether seatID is in the selection.
func (s *Session) IsSelected(seatID string) bool {
	for _, id := range s.SelectedSeats {
		if id == seatID {
			return true
		}
	}
	return false
}
