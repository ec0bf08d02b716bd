package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// Activities recorded while a state change runs.
const (
	ActivityConfirm = "confirm"
	ActivityChange  = "change-seats"
	ActivitySelect  = "select"
	ActivityRefresh = "refresh"
)

// ErrNoSession is returned for unknown or expired session ids.
var ErrNoSession = errors.New("session not found or expired")

type entry struct {
	op   sync.Mutex     // serializes state changes on sess
	sess *model.Session // guarded by op

	// guarded by Manager.mu
	view     model.Session
	activity string
}

// Manager is the in-process registry of buyer sessions. Sessions are not
// persisted; the ledger holds everything durable.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

// NewManager returns a registry whose sessions expire after ttl without
// activity.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Manager{sessions: make(map[string]*entry), ttl: ttl, now: time.Now}
}

func clone(s *model.Session) model.Session {
	c := *s
	c.SelectedSeats = append([]string(nil), s.SelectedSeats...)
	c.LastBooked = append([]string(nil), s.LastBooked...)
	return c
}

// Create registers s under a new id and returns the stored copy.
func (m *Manager) Create(s model.Session) model.Session {
	now := m.now()
	s.ID = uuid.NewString()
	s.CreatedAt = now
	s.ExpiresAt = now.Add(m.ttl)
	e := &entry{sess: &s}
	m.mu.Lock()
	defer m.mu.Unlock()
	e.view = clone(e.sess)
	m.sessions[s.ID] = e
	return e.view
}

func (m *Manager) lookup(id string) (*entry, error) {
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNoSession
	}
	if m.now().After(e.view.ExpiresAt) {
		delete(m.sessions, id)
		return nil, ErrNoSession
	}
	return e, nil
}

// Get returns a copy of the session as of its last completed state change
// together with the activity running on it, if any. It never waits for a
// running change.
func (m *Manager) Get(id string) (model.Session, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup(id)
	if err != nil {
		return model.Session{}, "", err
	}
	return clone(&e.view), e.activity, nil
}

// With runs fn on the live session, one call per session at a time, and
// publishes the result as the new view. The session's expiry slides
// forward. The returned copy reflects fn's changes even when fn fails.
func (m *Manager) With(id, activity string, fn func(*model.Session) error) (model.Session, error) {
	m.mu.Lock()
	e, err := m.lookup(id)
	m.mu.Unlock()
	if err != nil {
		return model.Session{}, err
	}

	e.op.Lock()
	defer e.op.Unlock()

	m.mu.Lock()
	e.activity = activity
	m.mu.Unlock()

	ferr := fn(e.sess)

	m.mu.Lock()
	defer m.mu.Unlock()
	e.sess.ExpiresAt = m.now().Add(m.ttl)
	e.view = clone(e.sess)
	e.activity = ""
	return clone(e.sess), ferr
}

// Delete drops the session. Unknown ids are ignored.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// ClearHalt lifts the halt from every session waiting on incidentID and
// returns how many were released.
func (m *Manager) ClearHalt(incidentID string) int {
	if incidentID == "" {
		return 0
	}
	m.mu.Lock()
	var waiting []*entry
	for _, e := range m.sessions {
		if e.view.Halted && e.view.IncidentID == incidentID {
			waiting = append(waiting, e)
		}
	}
	m.mu.Unlock()

	n := 0
	for _, e := range waiting {
		e.op.Lock()
		if e.sess.IncidentID == incidentID {
			e.sess.Halted = false
			e.sess.HaltReason = ""
			e.sess.IncidentID = ""
			n++
		}
		m.mu.Lock()
		e.view = clone(e.sess)
		m.mu.Unlock()
		e.op.Unlock()
	}
	return n
}

// Sweep drops expired sessions and returns how many went.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, e := range m.sessions {
		if now.After(e.view.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// RunJanitor sweeps expired sessions every interval until ctx ends.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				log.Printf("session: swept %d expired sessions", n)
			}
		}
	}
}
