package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/event-seat-booking/internal/ledger"
	"github.com/iliyamo/event-seat-booking/internal/model"
)

// WhitelistRepo reads and writes the Whitelist table. Reads always go to
// the ledger itself: every caller is about to make a quota decision.
type WhitelistRepo struct {
	store ledger.Store
}

// NewWhitelistRepo constructs a WhitelistRepo over the given ledger.
func NewWhitelistRepo(store ledger.Store) *WhitelistRepo {
	if store == nil {
		panic("nil store passed to NewWhitelistRepo")
	}
	return &WhitelistRepo{store: store}
}

// All returns every whitelist row in ledger order. Name is kept raw
// (untrimmed) because sibling grouping compares it verbatim.
func (r *WhitelistRepo) All(ctx context.Context) ([]model.WhitelistRow, error) {
	rows, err := r.store.ReadTable(ledger.WithFreshRead(ctx), ledger.TableWhitelist)
	if err != nil {
		return nil, err
	}
	out := make([]model.WhitelistRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.WhitelistRow{
			Ref:            row.Ref,
			Name:           row.Raw(ledger.ColName),
			ReceiptNo:      row.Get(ledger.ColReceiptNo),
			TicketsAllowed: atoiOrZero(row.Get(ledger.ColTicketsAllowed)),
			TicketsUsed:    atoiOrZero(row.Get(ledger.ColTicketsUsed)),
			Contact:        row.Get(ledger.ColContact),
		})
	}
	return out, nil
}

// SetUsed writes TicketsUsed for several rows in one batch.
func (r *WhitelistRepo) SetUsed(ctx context.Context, used map[int]int) error {
	if len(used) == 0 {
		return nil
	}
	refs := make([]int, 0, len(used))
	for ref := range used {
		refs = append(refs, ref)
	}
	sort.Ints(refs)
	updates := make([]ledger.CellUpdate, 0, len(refs))
	for _, ref := range refs {
		updates = append(updates, ledger.CellUpdate{
			Row:    ref,
			Column: ledger.ColTicketsUsed,
			Value:  fmt.Sprint(used[ref]),
		})
	}
	return r.store.WriteCells(ctx, ledger.TableWhitelist, updates)
}
