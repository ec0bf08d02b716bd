package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/ledger"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/repository"
)

var errBackend = errors.New("backend: connection reset")

// flakyStore wraps a ledger, counts writes per table and can be told to
// fail reads or writes of a table.
type flakyStore struct {
	ledger.Store

	mu         sync.Mutex
	writes     map[string]int
	failRead   map[string]error
	failWrite  map[string]error
	afterWrite func(table string, updates []ledger.CellUpdate)
}

func newFlakyStore(inner ledger.Store) *flakyStore {
	return &flakyStore{
		Store:     inner,
		writes:    make(map[string]int),
		failRead:  make(map[string]error),
		failWrite: make(map[string]error),
	}
}

func (s *flakyStore) ReadTable(ctx context.Context, table string) ([]ledger.Row, error) {
	s.mu.Lock()
	err := s.failRead[table]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.ReadTable(ctx, table)
}

func (s *flakyStore) ReadRow(ctx context.Context, table string, ref int) (ledger.Row, error) {
	s.mu.Lock()
	err := s.failRead[table]
	s.mu.Unlock()
	if err != nil {
		return ledger.Row{}, err
	}
	return s.Store.ReadRow(ctx, table, ref)
}

func (s *flakyStore) FindRow(ctx context.Context, table, keyColumn, key string) (int, error) {
	s.mu.Lock()
	err := s.failRead[table]
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return s.Store.FindRow(ctx, table, keyColumn, key)
}

func (s *flakyStore) WriteCells(ctx context.Context, table string, updates []ledger.CellUpdate) error {
	s.mu.Lock()
	err := s.failWrite[table]
	hook := s.afterWrite
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if err := s.Store.WriteCells(ctx, table, updates); err != nil {
		return err
	}
	s.mu.Lock()
	s.writes[table]++
	s.mu.Unlock()
	if hook != nil {
		hook(table, updates)
	}
	return nil
}

func (s *flakyStore) writeCount(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[table]
}

func (s *flakyStore) totalWrites() int {
	return s.writeCount(ledger.TableSeats) + s.writeCount(ledger.TableWhitelist)
}

// invalidations counts display cache drops.
type invalidations struct {
	mu     sync.Mutex
	tables []string
}

func (i *invalidations) Invalidate(_ context.Context, table string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tables = append(i.tables, table)
}

func (i *invalidations) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.tables)
}

// mockPublisher records published events.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, queueName string, payload interface{}) error {
	args := m.Called(ctx, queueName, payload)
	return args.Error(0)
}

type fixture struct {
	mem       *ledger.MemoryStore
	store     *flakyStore
	whitelist *repository.WhitelistRepo
	seats     *repository.SeatRepo
	cache     *invalidations
	resolver  *Resolver
	quota     *QuotaTracker
	inventory *Inventory
	incidents *IncidentLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := ledger.NewMemoryStore()
	st := newFlakyStore(mem)
	f := &fixture{
		mem:       mem,
		store:     st,
		whitelist: repository.NewWhitelistRepo(st),
		seats:     repository.NewSeatRepo(st),
		cache:     &invalidations{},
		incidents: NewIncidentLog(10),
	}
	f.resolver = NewResolver(f.whitelist, false)
	f.quota = NewQuotaTracker(f.whitelist)
	f.inventory = NewInventory(f.seats, f.cache)
	return f
}

func (f *fixture) addBuyer(t *testing.T, name, receipt string, allowed, used int, contact string) int {
	t.Helper()
	ref, err := f.mem.Append(ledger.TableWhitelist, map[string]string{
		"Name":           name,
		"ReceiptNo":      receipt,
		"TicketsAllowed": fmt.Sprint(allowed),
		"TicketsUsed":    fmt.Sprint(used),
		"Contact":        contact,
	})
	require.NoError(t, err)
	return ref
}

func (f *fixture) addSeat(t *testing.T, id, section, row string, col int) int {
	t.Helper()
	return f.addHeldSeat(t, id, section, row, col, "", "")
}

func (f *fixture) addHeldSeat(t *testing.T, id, section, row string, col int, holder, contact string) int {
	t.Helper()
	status := ""
	if holder != "" {
		status = "reserved"
	}
	ref, err := f.mem.Append(ledger.TableSeats, map[string]string{
		"SeatID":     id,
		"Section":    section,
		"Row":        row,
		"Col":        fmt.Sprint(col),
		"Status":     status,
		"ReservedBy": holder,
		"PhoneNo":    contact,
	})
	require.NoError(t, err)
	return ref
}

func (f *fixture) seat(t *testing.T, id string) model.Seat {
	t.Helper()
	s, err := f.seats.GetFresh(context.Background(), id)
	require.NoError(t, err)
	return s
}

func (f *fixture) usedByRef(t *testing.T) map[int]int {
	t.Helper()
	rows, err := f.whitelist.All(context.Background())
	require.NoError(t, err)
	out := make(map[int]int, len(rows))
	for _, r := range rows {
		out[r.Ref] = r.TicketsUsed
	}
	return out
}

// login resolves the buyer and builds a session the way the session
// manager does.
func (f *fixture) login(t *testing.T, name, receipt, contact string) *model.Session {
	t.Helper()
	e, err := f.resolver.Resolve(context.Background(), name, receipt)
	require.NoError(t, err)
	return &model.Session{
		ID:             "sess-" + receipt,
		BuyerName:      name,
		Contact:        contact,
		Receipt:        receipt,
		Quota:          e.Ref(),
		TicketsAllowed: e.TotalAllowed,
		TicketsUsed:    e.TotalUsed,
		TermsAccepted:  true,
	}
}
