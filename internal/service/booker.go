package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/queue"
)

// ConfirmResult reports a confirm attempt. Failed seats were already held
// or do not exist; they are dropped, not retried.
type ConfirmResult struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
	Remaining int      `json:"remaining"`
}

// ChangeResult reports the seats a buyer gave up to pick again.
type ChangeResult struct {
	Freed     []string `json:"freed"`
	Remaining int      `json:"remaining"`
}

// Booker runs the confirm and change-seats flows over the quota tracker and
// the seat inventory. Callers serialize calls per session.
type Booker struct {
	quota     *QuotaTracker
	inventory *Inventory
	incidents *IncidentLog
	events    EventPublisher
	now       func() time.Time
}

// NewBooker constructs a Booker. events may be nil.
func NewBooker(quota *QuotaTracker, inventory *Inventory, incidents *IncidentLog, events EventPublisher) *Booker {
	if quota == nil || inventory == nil || incidents == nil {
		panic("nil dependency passed to NewBooker")
	}
	if events == nil {
		events = nopPublisher{}
	}
	return &Booker{quota: quota, inventory: inventory, incidents: incidents, events: events, now: time.Now}
}

// RefreshQuota re-reads the buyer's group and copies the counters onto
// sess.
func (b *Booker) RefreshQuota(ctx context.Context, sess *model.Session) (model.WhitelistEntry, error) {
	e, err := b.quota.Entry(ctx, sess.Quota)
	if err != nil {
		return model.WhitelistEntry{}, err
	}
	sess.TicketsAllowed = e.TotalAllowed
	sess.TicketsUsed = e.TotalUsed
	return e, nil
}

// Confirm claims every selected seat for the buyer and commits the number
// claimed against the quota.
//
// The quota is re-read first and a selection larger than what remains is
// refused before any write. Each seat is claimed on its own; seats lost to
// other buyers land in Failed. When nothing could be claimed the selection
// is cleared and ErrNothingBooked returned. A quota write that fails after
// seats were claimed returns a *PartialCommitError and halts the session.
func (b *Booker) Confirm(ctx context.Context, sess *model.Session) (ConfirmResult, error) {
	var res ConfirmResult
	if sess.Halted {
		return res, ErrSessionHalted
	}
	if len(sess.SelectedSeats) == 0 {
		return res, ErrEmptySelection
	}

	e, err := b.RefreshQuota(ctx, sess)
	if err != nil {
		return res, b.haltOnStore(ctx, sess, "confirm", err)
	}
	res.Remaining = e.Remaining()
	if len(sess.SelectedSeats) > e.Remaining() {
		return res, ErrQuotaExceeded
	}

	snap, err := b.inventory.Snapshot(ctx)
	if err != nil {
		return res, b.haltOnStore(ctx, sess, "confirm", err)
	}

	for _, id := range sess.SelectedSeats {
		if s, ok := snap[id]; !ok || !s.IsAvailable() {
			res.Failed = append(res.Failed, id)
			continue
		}
		ok, err := b.inventory.Claim(ctx, id, sess.BuyerName, sess.Contact)
		if err != nil && !isBenign(err) {
			if len(res.Succeeded) > 0 {
				perr := &PartialCommitError{Op: "confirm", Seats: res.Succeeded, Err: err}
				b.halt(ctx, sess, IncidentPartialCommit, perr.Op, perr.Seats, perr)
				b.inventory.Invalidate(ctx)
				return res, perr
			}
			return res, b.haltOnStore(ctx, sess, "confirm", err)
		}
		if ok {
			res.Succeeded = append(res.Succeeded, id)
		} else {
			res.Failed = append(res.Failed, id)
		}
	}

	if len(res.Succeeded) == 0 {
		sess.SelectedSeats = nil
		b.inventory.Invalidate(ctx)
		return res, ErrNothingBooked
	}

	if err := b.quota.Commit(ctx, sess.Quota, len(res.Succeeded)); err != nil {
		perr := &PartialCommitError{Op: "confirm", Seats: res.Succeeded, Err: err}
		b.halt(ctx, sess, IncidentPartialCommit, perr.Op, perr.Seats, perr)
		b.inventory.Invalidate(ctx)
		return res, perr
	}

	sess.Confirmed = true
	sess.SelectedSeats = nil
	sess.LastBooked = res.Succeeded
	b.inventory.Invalidate(ctx)

	if e, err := b.RefreshQuota(ctx, sess); err != nil {
		log.Printf("booking: refresh quota after confirm failed: %v", err)
		sess.TicketsUsed += len(res.Succeeded)
		res.Remaining = sess.Remaining()
	} else {
		res.Remaining = e.Remaining()
	}

	b.publish(ctx, queue.QueueBookingConfirmed, queue.SeatsBookedEvent{
		SessionID:      sess.ID,
		BuyerName:      sess.BuyerName,
		Contact:        sess.Contact,
		Receipt:        sess.Receipt,
		Seats:          res.Succeeded,
		Failed:         res.Failed,
		TicketsAllowed: sess.TicketsAllowed,
		TicketsUsed:    sess.TicketsUsed,
		ConfirmedAt:    b.now().UTC().Format(time.RFC3339),
	})
	return res, nil
}

// ChangeSeats releases every seat the buyer holds and refunds the same
// number of tickets, returning the session to seat selection. A refund
// that fails after the seats were freed returns a *PartialCommitError and
// halts the session.
func (b *Booker) ChangeSeats(ctx context.Context, sess *model.Session) (ChangeResult, error) {
	var res ChangeResult
	if sess.Halted {
		return res, ErrSessionHalted
	}
	freed, err := b.inventory.ReleaseAll(ctx, sess.BuyerName)
	if err != nil {
		return res, b.haltOnStore(ctx, sess, "change-seats", err)
	}
	res.Freed = freed
	if len(freed) > 0 {
		b.inventory.Invalidate(ctx)
		if err := b.quota.Release(ctx, sess.Quota, len(freed)); err != nil {
			perr := &PartialCommitError{Op: "change-seats", Seats: freed, Err: err}
			b.halt(ctx, sess, IncidentPartialCommit, perr.Op, perr.Seats, perr)
			return res, perr
		}
	}

	sess.Confirmed = false
	sess.SelectedSeats = nil
	sess.LastBooked = nil
	if e, err := b.RefreshQuota(ctx, sess); err != nil {
		log.Printf("booking: refresh quota after change-seats failed: %v", err)
		sess.TicketsUsed = max(0, sess.TicketsUsed-len(freed))
		res.Remaining = sess.Remaining()
	} else {
		res.Remaining = e.Remaining()
	}

	if len(freed) > 0 {
		b.publish(ctx, queue.QueueSeatsReleased, queue.SeatsReleasedEvent{
			SessionID:  sess.ID,
			BuyerName:  sess.BuyerName,
			Receipt:    sess.Receipt,
			Seats:      freed,
			ReleasedAt: b.now().UTC().Format(time.RFC3339),
		})
	}
	return res, nil
}

// haltOnStore halts the session when err is a ledger failure and returns
// err unchanged either way.
func (b *Booker) haltOnStore(ctx context.Context, sess *model.Session, op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		b.halt(ctx, sess, IncidentStoreUnavailable, op, nil, err)
	}
	return err
}

// halt blocks further state changes on sess, records an incident and
// raises it on the reconciliation queue.
func (b *Booker) halt(ctx context.Context, sess *model.Session, kind, op string, seats []string, err error) {
	in := b.incidents.Record(Incident{
		Kind:      kind,
		Op:        op,
		SessionID: sess.ID,
		BuyerName: sess.BuyerName,
		Receipt:   sess.Receipt,
		Seats:     seats,
		Error:     err.Error(),
	})
	sess.Halted = true
	sess.HaltReason = kind
	sess.IncidentID = in.ID
	log.Printf("booking: session %s halted (%s, incident %s): %v", sess.ID, kind, in.ID, err)

	b.publish(ctx, queue.QueueReconciliation, queue.ReconciliationAlert{
		IncidentID: in.ID,
		Kind:       in.Kind,
		Op:         in.Op,
		SessionID:  in.SessionID,
		BuyerName:  in.BuyerName,
		Receipt:    in.Receipt,
		Seats:      in.Seats,
		Error:      in.Error,
		OccurredAt: in.CreatedAt.Format(time.RFC3339),
	})
}

// publish sends an event and only logs failures; the ledger already holds
// the outcome.
func (b *Booker) publish(ctx context.Context, queueName string, payload interface{}) {
	if err := b.events.Publish(ctx, queueName, payload); err != nil {
		log.Printf("booking: publish to %s failed: %v", queueName, err)
	}
}
