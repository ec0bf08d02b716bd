package service

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Incident kinds.
const (
	IncidentPartialCommit    = "partial_commit"
	IncidentStoreUnavailable = "store_unavailable"
)

// ErrIncidentNotFound is returned by Resolve for an unknown id.
var ErrIncidentNotFound = errors.New("incident not found")

// Incident records a state change that failed in a way an operator must
// reconcile by hand.
type Incident struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Op         string     `json:"op"`
	SessionID  string     `json:"session_id"`
	BuyerName  string     `json:"buyer_name"`
	Receipt    string     `json:"receipt"`
	Seats      []string   `json:"seats,omitempty"`
	Error      string     `json:"error"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Resolved reports whether an operator closed the incident.
func (i Incident) Resolved() bool { return i.ResolvedAt != nil }

// IncidentLog keeps the most recent incidents in memory. The broker copy
// on booking.reconciliation is the durable one.
type IncidentLog struct {
	mu    sync.Mutex
	items []Incident
	max   int
	now   func() time.Time
}

// NewIncidentLog keeps at most max incidents (oldest dropped first).
func NewIncidentLog(max int) *IncidentLog {
	if max <= 0 {
		max = 500
	}
	return &IncidentLog{max: max, now: time.Now}
}

// Record stores a new incident and returns it with ID and CreatedAt set.
func (l *IncidentLog) Record(in Incident) Incident {
	l.mu.Lock()
	defer l.mu.Unlock()
	in.ID = uuid.NewString()
	in.CreatedAt = l.now().UTC()
	in.ResolvedAt = nil
	l.items = append(l.items, in)
	if len(l.items) > l.max {
		l.items = l.items[len(l.items)-l.max:]
	}
	return in
}

// List returns incidents newest first. With openOnly, resolved ones are
// skipped.
func (l *IncidentLog) List(openOnly bool) []Incident {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Incident, 0, len(l.items))
	for i := len(l.items) - 1; i >= 0; i-- {
		if openOnly && l.items[i].Resolved() {
			continue
		}
		out = append(out, l.items[i])
	}
	return out
}

// Resolve marks the incident closed. Resolving twice keeps the first time.
func (l *IncidentLog) Resolve(id string) (Incident, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID != id {
			continue
		}
		if l.items[i].ResolvedAt == nil {
			t := l.now().UTC()
			l.items[i].ResolvedAt = &t
		}
		return l.items[i], nil
	}
	return Incident{}, ErrIncidentNotFound
}
