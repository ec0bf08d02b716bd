package service

import (
	"context"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// WhitelistStore is the slice of repository.WhitelistRepo the core needs.
// All must always read the ledger itself, never a cache.
type WhitelistStore interface {
	All(ctx context.Context) ([]model.WhitelistRow, error)
	SetUsed(ctx context.Context, used map[int]int) error
}

// SeatStore is the slice of repository.SeatRepo the core needs.
type SeatStore interface {
	All(ctx context.Context) ([]model.Seat, error)
	GetFresh(ctx context.Context, seatID string) (model.Seat, error)
	Reserve(ctx context.Context, ref int, holder, contact string) error
	Clear(ctx context.Context, refs []int) error
}

// CacheInvalidator drops the display cache of a ledger table.
// ledger.CachedStore satisfies it.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, table string)
}

// EventPublisher sends a payload to a named queue. queue.Publisher
// satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, queueName string, payload interface{}) error
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, string) {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, interface{}) error { return nil }
