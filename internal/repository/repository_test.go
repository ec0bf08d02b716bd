package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/ledger"
	"github.com/iliyamo/event-seat-booking/internal/model"
)

func seededStore(t *testing.T) *ledger.MemoryStore {
	t.Helper()
	mem := ledger.NewMemoryStore()
	for _, r := range []map[string]string{
		{"SeatID": "A1", "Section": "Stalls", "Row": "A", "Col": "1", "Status": "Reserved", "ReservedBy": "Tan Mei", "PhoneNo": "0123"},
		{"SeatID": "", "Section": "Stalls"},
		{"SeatID": " A2 ", "Section": "Stalls", "Row": "A", "Col": "two", "Status": "Reserved"},
	} {
		_, err := mem.Append(ledger.TableSeats, r)
		require.NoError(t, err)
	}
	for _, r := range []map[string]string{
		{"Name": " Tan Mei/Tan Wei", "ReceiptNo": " SR-1 ", "TicketsAllowed": "3", "TicketsUsed": "", "Contact": "0123"},
		{"Name": "Bob", "ReceiptNo": "SR-2", "TicketsAllowed": "x", "TicketsUsed": "1"},
	} {
		_, err := mem.Append(ledger.TableWhitelist, r)
		require.NoError(t, err)
	}
	return mem
}

func TestSeatRepoReadsLedgerRows(t *testing.T) {
	repo := NewSeatRepo(seededStore(t))
	ctx := context.Background()

	seats, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, seats, 2, "rows without a seat id are skipped")
	assert.Equal(t, model.SeatReserved, seats[0].EffectiveStatus())
	assert.Equal(t, 2, seats[0].Ref)

	a2 := seats[1]
	assert.Equal(t, "A2", a2.SeatID)
	assert.Equal(t, 0, a2.Col, "non-numeric column reads as 0")
	assert.Equal(t, "reserved", a2.StoredStatus)
	assert.True(t, a2.IsAvailable(), "stored status alone does not hold a seat")

	_, err = repo.GetFresh(ctx, "Z9")
	assert.ErrorIs(t, err, ErrSeatNotFound)
}

func TestSeatRepoReserveAndClear(t *testing.T) {
	mem := seededStore(t)
	repo := NewSeatRepo(mem)
	ctx := context.Background()

	require.NoError(t, repo.Reserve(ctx, 4, "Bob", "0999"))
	s, err := repo.GetFresh(ctx, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Bob", s.ReservedBy)
	assert.Equal(t, "0999", s.ReservedContact)
	assert.False(t, s.IsAvailable())

	require.NoError(t, repo.Clear(ctx, []int{2, 4}))
	seats, err := repo.All(ctx)
	require.NoError(t, err)
	for _, s := range seats {
		assert.True(t, s.IsAvailable(), s.SeatID)
		assert.Empty(t, s.StoredStatus)
	}
	assert.NoError(t, repo.Clear(ctx, nil))
}

func TestWhitelistRepo(t *testing.T) {
	mem := seededStore(t)
	repo := NewWhitelistRepo(mem)
	ctx := context.Background()

	rows, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, " Tan Mei/Tan Wei", rows[0].Name, "names stay raw")
	assert.Equal(t, "SR-1", rows[0].ReceiptNo)
	assert.Equal(t, 3, rows[0].TicketsAllowed)
	assert.Equal(t, 0, rows[0].TicketsUsed)
	assert.Equal(t, 0, rows[1].TicketsAllowed)

	require.NoError(t, repo.SetUsed(ctx, map[int]int{2: 2, 3: 0}))
	rows, err = repo.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rows[0].TicketsUsed)
	assert.Equal(t, 0, rows[1].TicketsUsed)

	assert.ErrorIs(t, repo.SetUsed(ctx, map[int]int{99: 1}), ledger.ErrRowNotFound)
}

// scanlessStore refuses whole-table reads.
type scanlessStore struct {
	ledger.Store
}

func (scanlessStore) ReadTable(context.Context, string) ([]ledger.Row, error) {
	return nil, errors.New("unexpected table scan")
}

func TestSeatRepoGetFreshReadsOneRow(t *testing.T) {
	repo := NewSeatRepo(scanlessStore{Store: seededStore(t)})
	ctx := context.Background()

	s, err := repo.GetFresh(ctx, " A2")
	require.NoError(t, err)
	assert.Equal(t, "A2", s.SeatID)
	assert.Equal(t, 4, s.Ref)

	s, err = repo.GetFresh(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Tan Mei", s.ReservedBy)

	_, err = repo.GetFresh(ctx, "")
	assert.ErrorIs(t, err, ErrSeatNotFound, "blank rows are not seats")
	_, err = repo.GetFresh(ctx, "Z9")
	assert.ErrorIs(t, err, ErrSeatNotFound)
}

func TestReposRejectNilStore(t *testing.T) {
	assert.PanicsWithValue(t, "nil store passed to NewSeatRepo", func() { NewSeatRepo(nil) })
	assert.PanicsWithValue(t, "nil store passed to NewWhitelistRepo", func() { NewWhitelistRepo(nil) })
}
