package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/database"
	"github.com/iliyamo/event-seat-booking/internal/ledger"
)

// openLedger builds the store stack: backend, retries, then the Redis
// display cache on top so a cache hit never waits on a retry.
func openLedger(ctx context.Context, lc config.LedgerConfig, cc config.CacheConfig, rdb *redis.Client) (*ledger.CachedStore, func(), error) {
	var (
		backend ledger.Store
		closeFn = func() {}
	)
	switch lc.Backend {
	case config.BackendXLSX:
		s, err := ledger.OpenXLSX(lc.XLSXPath)
		if err != nil {
			return nil, nil, err
		}
		backend = s
	case config.BackendMySQL:
		db, err := database.Open(lc.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mysql: %w", err)
		}
		s := ledger.NewMySQLStore(db)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		backend = s
		closeFn = func() { _ = db.Close() }
	case config.BackendMemory:
		log.Printf("ledger: using in-memory backend, bookings are lost on restart")
		backend = ledger.NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", lc.Backend)
	}

	retrying := ledger.NewRetryingStore(backend, ledger.RetryPolicy{
		Attempts:   lc.RetryAttempts,
		Backoff:    lc.RetryBackoff,
		MaxBackoff: lc.RetryMaxWait,
	})
	if !cc.Enabled {
		rdb = nil
	}
	// whitelist rows carry contacts and receipts and are always read fresh
	ttls := map[string]time.Duration{ledger.TableSeats: cc.SeatsTTL}
	return ledger.NewCachedStore(retrying, rdb, cc.Prefix, ttls), closeFn, nil
}
