package service

import (
	"context"
	"strings"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// Resolver matches a buyer against the Whitelist table.
type Resolver struct {
	whitelist WhitelistStore
	unlimited bool
}

// NewResolver constructs a Resolver. With unlimited set every entry it
// returns carries the Unlimited flag.
func NewResolver(whitelist WhitelistStore, unlimited bool) *Resolver {
	if whitelist == nil {
		panic("nil whitelist store passed to NewResolver")
	}
	return &Resolver{whitelist: whitelist, unlimited: unlimited}
}

// Resolve returns the first row, in ledger order, whose name field matches
// the buyer name and whose receipt equals receipt, together with the
// sibling group sharing that row's raw name.
func (r *Resolver) Resolve(ctx context.Context, name, receipt string) (model.WhitelistEntry, error) {
	receipt = strings.TrimSpace(receipt)
	if NormalizeName(name) == "" || receipt == "" {
		return model.WhitelistEntry{}, ErrNotFound
	}
	rows, err := r.whitelist.All(ctx)
	if err != nil {
		return model.WhitelistEntry{}, storeErr("resolve", err)
	}
	for _, row := range rows {
		if row.ReceiptNo != receipt || !nameMatches(name, row.Name) {
			continue
		}
		entry := groupEntry(rows, row.Name)
		entry.ReceiptNo = row.ReceiptNo
		entry.MatchedRef = row.Ref
		entry.Contact = row.Contact
		entry.Unlimited = r.unlimited
		return entry, nil
	}
	return model.WhitelistEntry{}, ErrNotFound
}

// groupEntry aggregates every row whose raw name equals key exactly.
func groupEntry(rows []model.WhitelistRow, key string) model.WhitelistEntry {
	e := model.WhitelistEntry{GroupKey: key}
	for _, row := range rows {
		if row.Name != key {
			continue
		}
		e.Members = append(e.Members, row)
		e.TotalAllowed += row.TicketsAllowed
		e.TotalUsed += row.TicketsUsed
	}
	return e
}
