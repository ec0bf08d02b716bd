package ledger

import (
	"context"
	"log"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fillScript stores a table copy only when the table's generation still
// matches the one seen before the backend read, so a read that overlapped
// an invalidation cannot put pre-write rows back.
var fillScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[1]) or '0'
if gen ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// CachedStore serves table reads from Redis when the caller's context asks
// for CachedRead. Fresh reads and all writes go to the wrapped store; a write
// drops the cached copy of its table. Only a CachedRead miss fills the
// cache. With a nil client it is a pass-through.
type CachedStore struct {
	inner  Store
	rdb    *redis.Client
	prefix string
	ttl    map[string]time.Duration
}

// NewCachedStore wraps inner. ttls holds the cache lifetime per table; a
// table without an entry (or with a non-positive TTL) is never cached.
func NewCachedStore(inner Store, rdb *redis.Client, prefix string, ttls map[string]time.Duration) *CachedStore {
	if prefix == "" {
		prefix = "ledger"
	}
	return &CachedStore{inner: inner, rdb: rdb, prefix: prefix, ttl: ttls}
}

func (s *CachedStore) key(table string) string {
	return s.prefix + ":table:" + table
}

func (s *CachedStore) genKey(table string) string {
	return s.prefix + ":gen:" + table
}

func (s *CachedStore) cacheable(table string) (time.Duration, bool) {
	if s.rdb == nil {
		return 0, false
	}
	ttl, ok := s.ttl[table]
	return ttl, ok && ttl > 0
}

// ReadTable returns cached rows for CachedRead contexts when present.
func (s *CachedStore) ReadTable(ctx context.Context, table string) ([]Row, error) {
	ttl, ok := s.cacheable(table)
	if !ok || ConsistencyFrom(ctx) != CachedRead {
		return s.inner.ReadTable(ctx, table)
	}
	if bs, err := s.rdb.Get(ctx, s.key(table)).Bytes(); err == nil {
		var rows []Row
		if err := json.Unmarshal(bs, &rows); err == nil {
			return rows, nil
		}
	} else if err != redis.Nil {
		log.Printf("ledger: cache get %s failed: %v", table, err)
	}

	gen, genErr := s.rdb.Get(ctx, s.genKey(table)).Result()
	switch {
	case genErr == redis.Nil:
		gen, genErr = "0", nil
	case genErr != nil:
		log.Printf("ledger: cache generation %s failed: %v", table, genErr)
	}
	rows, err := s.inner.ReadTable(ctx, table)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		s.fill(ctx, table, gen, rows, ttl)
	}
	return rows, nil
}

func (s *CachedStore) fill(ctx context.Context, table, gen string, rows []Row, ttl time.Duration) {
	payload, err := json.Marshal(rows)
	if err != nil {
		return
	}
	keys := []string{s.genKey(table), s.key(table)}
	stored, err := fillScript.Run(ctx, s.rdb, keys, gen, string(payload), ttl.Milliseconds()).Int64()
	if err != nil {
		log.Printf("ledger: cache set %s failed: %v", table, err)
		return
	}
	if stored == 0 {
		log.Printf("ledger: cache fill %s skipped, table changed during read", table)
	}
}

// ReadRow always asks the wrapped store.
func (s *CachedStore) ReadRow(ctx context.Context, table string, ref int) (Row, error) {
	return s.inner.ReadRow(ctx, table, ref)
}

// WriteCells writes through and invalidates the table's cached copy.
func (s *CachedStore) WriteCells(ctx context.Context, table string, updates []CellUpdate) error {
	err := s.inner.WriteCells(ctx, table, updates)
	// invalidate even on failure: a partial batch may have landed
	s.Invalidate(ctx, table)
	return err
}

// FindRow always asks the wrapped store.
func (s *CachedStore) FindRow(ctx context.Context, table, keyColumn, key string) (int, error) {
	return s.inner.FindRow(ctx, table, keyColumn, key)
}

// Invalidate bumps the table's generation and drops its cached copy. The
// generation moves first so a fill racing with this call is refused.
func (s *CachedStore) Invalidate(ctx context.Context, table string) {
	if _, ok := s.cacheable(table); !ok {
		return
	}
	if err := s.rdb.Incr(ctx, s.genKey(table)).Err(); err != nil {
		log.Printf("ledger: cache generation bump %s failed: %v", table, err)
	}
	if err := s.rdb.Del(ctx, s.key(table)).Err(); err != nil {
		log.Printf("ledger: cache invalidate %s failed: %v", table, err)
	}
}
