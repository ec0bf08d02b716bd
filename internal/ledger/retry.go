package ledger

import (
	"context"
	"errors"
	"log"
	"time"
)

// RetryPolicy bounds how often a failing ledger call is repeated.
type RetryPolicy struct {
	Attempts   int           // total attempts, including the first
	Backoff    time.Duration // wait before the second attempt
	MaxBackoff time.Duration // cap for the doubling backoff
}

// RetryingStore repeats calls that fail with a transport-level error. Cell
// writes set absolute values, so repeating a batch is safe.
type RetryingStore struct {
	inner  Store
	policy RetryPolicy
	sleep  func(context.Context, time.Duration) error
}

// NewRetryingStore wraps inner. Attempts below 1 are treated as 1.
func NewRetryingStore(inner Store, policy RetryPolicy) *RetryingStore {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if policy.Backoff <= 0 {
		policy.Backoff = 200 * time.Millisecond
	}
	if policy.MaxBackoff < policy.Backoff {
		policy.MaxBackoff = policy.Backoff
	}
	return &RetryingStore{inner: inner, policy: policy, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// permanent reports errors that another attempt cannot fix.
func permanent(err error) bool {
	return errors.Is(err, ErrRowNotFound) ||
		errors.Is(err, ErrUnknownTable) ||
		errors.Is(err, ErrUnknownColumn) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (s *RetryingStore) do(ctx context.Context, op string, fn func() error) error {
	backoff := s.policy.Backoff
	var err error
	for attempt := 1; attempt <= s.policy.Attempts; attempt++ {
		if err = fn(); err == nil || permanent(err) {
			return err
		}
		if attempt == s.policy.Attempts {
			break
		}
		log.Printf("ledger: %s failed (attempt %d/%d): %v; retrying in %s", op, attempt, s.policy.Attempts, err, backoff)
		if serr := s.sleep(ctx, backoff); serr != nil {
			return err
		}
		backoff *= 2
		if backoff > s.policy.MaxBackoff {
			backoff = s.policy.MaxBackoff
		}
	}
	return err
}

func (s *RetryingStore) ReadTable(ctx context.Context, table string) ([]Row, error) {
	var rows []Row
	err := s.do(ctx, "read "+table, func() error {
		var err error
		rows, err = s.inner.ReadTable(ctx, table)
		return err
	})
	return rows, err
}

func (s *RetryingStore) ReadRow(ctx context.Context, table string, ref int) (Row, error) {
	var row Row
	err := s.do(ctx, "read "+table+" row", func() error {
		var err error
		row, err = s.inner.ReadRow(ctx, table, ref)
		return err
	})
	return row, err
}

func (s *RetryingStore) WriteCells(ctx context.Context, table string, updates []CellUpdate) error {
	return s.do(ctx, "write "+table, func() error {
		return s.inner.WriteCells(ctx, table, updates)
	})
}

func (s *RetryingStore) FindRow(ctx context.Context, table, keyColumn, key string) (int, error) {
	var ref int
	err := s.do(ctx, "find "+table, func() error {
		var err error
		ref, err = s.inner.FindRow(ctx, table, keyColumn, key)
		return err
	})
	return ref, err
}
