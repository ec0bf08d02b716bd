package service

import (
	"context"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// QuotaTracker reads and adjusts the pooled ticket counters of a sibling
// group. Every method re-reads the Whitelist table before deciding.
type QuotaTracker struct {
	whitelist WhitelistStore
}

// NewQuotaTracker constructs a QuotaTracker.
func NewQuotaTracker(whitelist WhitelistStore) *QuotaTracker {
	if whitelist == nil {
		panic("nil whitelist store passed to NewQuotaTracker")
	}
	return &QuotaTracker{whitelist: whitelist}
}

// Entry re-reads the sibling group identified by ref. A group whose rows
// were all renamed or removed yields ErrNotFound.
func (q *QuotaTracker) Entry(ctx context.Context, ref model.QuotaRef) (model.WhitelistEntry, error) {
	rows, err := q.whitelist.All(ctx)
	if err != nil {
		return model.WhitelistEntry{}, storeErr("quota read", err)
	}
	e := groupEntry(rows, ref.GroupKey)
	if len(e.Members) == 0 {
		return model.WhitelistEntry{}, ErrNotFound
	}
	e.ReceiptNo = ref.ReceiptNo
	e.MatchedRef = ref.MatchedRef
	e.Unlimited = ref.Unlimited
	for _, m := range e.Members {
		if m.Ref == ref.MatchedRef {
			e.Contact = m.Contact
		}
	}
	return e, nil
}

// Remaining returns allowed minus used for the group, read fresh.
func (q *QuotaTracker) Remaining(ctx context.Context, ref model.QuotaRef) (int, error) {
	e, err := q.Entry(ctx, ref)
	if err != nil {
		return 0, err
	}
	return e.Remaining(), nil
}

// Commit marks delta more tickets as used. It fails with ErrQuotaExceeded
// when delta exceeds the freshly read remaining count. The increase is
// spread over the group rows in ledger order, each row filled up to its
// own allowance, so no row ends above TicketsAllowed.
func (q *QuotaTracker) Commit(ctx context.Context, ref model.QuotaRef, delta int) error {
	if delta <= 0 {
		return nil
	}
	e, err := q.Entry(ctx, ref)
	if err != nil {
		return err
	}
	if delta > e.Remaining() {
		return ErrQuotaExceeded
	}
	used := make(map[int]int)
	left := delta
	for _, m := range e.Members {
		if left == 0 {
			break
		}
		room := m.TicketsAllowed - m.TicketsUsed
		if room <= 0 {
			continue
		}
		take := min(room, left)
		used[m.Ref] = m.TicketsUsed + take
		left -= take
	}
	return storeErr("quota commit", q.whitelist.SetUsed(ctx, used))
}

// Release gives n tickets back, draining rows in reverse ledger order and
// never taking a row below zero.
func (q *QuotaTracker) Release(ctx context.Context, ref model.QuotaRef, n int) error {
	if n <= 0 {
		return nil
	}
	e, err := q.Entry(ctx, ref)
	if err != nil {
		return err
	}
	used := make(map[int]int)
	left := n
	for i := len(e.Members) - 1; i >= 0 && left > 0; i-- {
		m := e.Members[i]
		if m.TicketsUsed <= 0 {
			continue
		}
		take := min(m.TicketsUsed, left)
		used[m.Ref] = m.TicketsUsed - take
		left -= take
	}
	return storeErr("quota release", q.whitelist.SetUsed(ctx, used))
}
