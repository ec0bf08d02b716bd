package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/event-seat-booking/internal/ledger"
	"github.com/iliyamo/event-seat-booking/internal/model"
)

// SeatRepo reads and writes the Seats table.
type SeatRepo struct {
	store ledger.Store
}

// NewSeatRepo constructs a SeatRepo over the given ledger.
func NewSeatRepo(store ledger.Store) *SeatRepo {
	if store == nil {
		panic("nil store passed to NewSeatRepo")
	}
	return &SeatRepo{store: store}
}

func seatFromRow(r ledger.Row) model.Seat {
	return model.Seat{
		SeatID:          r.Get(ledger.ColSeatID),
		Section:         r.Get(ledger.ColSection),
		Row:             r.Get(ledger.ColRow),
		Col:             atoiOrZero(r.Get(ledger.ColCol)),
		StoredStatus:    strings.ToLower(r.Get(ledger.ColStatus)),
		ReservedBy:      r.Get(ledger.ColReservedBy),
		ReservedContact: r.Get(ledger.ColPhoneNo),
		Ref:             r.Ref,
	}
}

// All returns every seat with a non-empty id in ledger order. Whether the
// read may come from the display cache is decided by ctx.
func (r *SeatRepo) All(ctx context.Context) ([]model.Seat, error) {
	rows, err := r.store.ReadTable(ctx, ledger.TableSeats)
	if err != nil {
		return nil, err
	}
	seats := make([]model.Seat, 0, len(rows))
	for _, row := range rows {
		s := seatFromRow(row)
		if s.SeatID == "" {
			continue
		}
		seats = append(seats, s)
	}
	return seats, nil
}

// GetFresh looks seatID up by key and reads its row from the ledger itself.
func (r *SeatRepo) GetFresh(ctx context.Context, seatID string) (model.Seat, error) {
	seatID = strings.TrimSpace(seatID)
	if seatID == "" {
		return model.Seat{}, ErrSeatNotFound
	}
	ref, err := r.store.FindRow(ctx, ledger.TableSeats, ledger.ColSeatID, seatID)
	if err != nil {
		if errors.Is(err, ledger.ErrRowNotFound) {
			return model.Seat{}, ErrSeatNotFound
		}
		return model.Seat{}, err
	}
	row, err := r.store.ReadRow(ctx, ledger.TableSeats, ref)
	if err != nil {
		if errors.Is(err, ledger.ErrRowNotFound) {
			return model.Seat{}, ErrSeatNotFound
		}
		return model.Seat{}, err
	}
	s := seatFromRow(row)
	if s.SeatID != seatID {
		// the row moved between the lookup and the read
		return model.Seat{}, ErrSeatNotFound
	}
	return s, nil
}

// Reserve writes the three reservation cells of one seat in a single batch.
func (r *SeatRepo) Reserve(ctx context.Context, ref int, holder, contact string) error {
	return r.store.WriteCells(ctx, ledger.TableSeats, []ledger.CellUpdate{
		{Row: ref, Column: ledger.ColStatus, Value: string(model.SeatReserved)},
		{Row: ref, Column: ledger.ColReservedBy, Value: holder},
		{Row: ref, Column: ledger.ColPhoneNo, Value: contact},
	})
}

// Clear blanks the reservation cells of every given row in one batch.
func (r *SeatRepo) Clear(ctx context.Context, refs []int) error {
	if len(refs) == 0 {
		return nil
	}
	updates := make([]ledger.CellUpdate, 0, len(refs)*3)
	for _, ref := range refs {
		updates = append(updates,
			ledger.CellUpdate{Row: ref, Column: ledger.ColStatus, Value: ""},
			ledger.CellUpdate{Row: ref, Column: ledger.ColReservedBy, Value: ""},
			ledger.CellUpdate{Row: ref, Column: ledger.ColPhoneNo, Value: ""},
		)
	}
	return r.store.WriteCells(ctx, ledger.TableSeats, updates)
}
