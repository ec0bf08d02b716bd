package ledger

import "context"

// ReadConsistency tells cache-aware stores whether a read may be served from
// a short-lived cache.
type ReadConsistency int

const (
	// FreshRead goes to the backing ledger. Default for every read so that
	// quota and claim decisions never act on stale rows.
	FreshRead ReadConsistency = iota
	// CachedRead may be served from the display cache.
	CachedRead
)

type contextKey string

const consistencyKey contextKey = "ledger.read_consistency"

// WithFreshRead marks ctx so reads bypass any cache.
func WithFreshRead(ctx context.Context) context.Context {
	return context.WithValue(ctx, consistencyKey, FreshRead)
}

// WithCachedRead marks ctx so reads may be served from the display cache.
func WithCachedRead(ctx context.Context) context.Context {
	return context.WithValue(ctx, consistencyKey, CachedRead)
}

// ConsistencyFrom returns the read consistency carried by ctx, FreshRead
// when none is set.
func ConsistencyFrom(ctx context.Context) ReadConsistency {
	if c, ok := ctx.Value(consistencyKey).(ReadConsistency); ok {
		return c
	}
	return FreshRead
}

func (c ReadConsistency) String() string {
	switch c {
	case FreshRead:
		return "fresh"
	case CachedRead:
		return "cached"
	default:
		return "unknown"
	}
}
