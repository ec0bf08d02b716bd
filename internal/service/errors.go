// Package service holds the seat-booking core: the whitelist resolver, the
// quota tracker, the seat inventory and the booker that coordinates them
// when a buyer confirms or changes seats.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/event-seat-booking/internal/repository"
)

var (
	// ErrNotFound means no whitelist row matched the buyer's name and
	// receipt. The buyer must contact an administrator.
	ErrNotFound = errors.New("whitelist entry not found")
	// ErrSeatTaken means the seat is already reserved by someone else.
	// Expected under contention; the seat is dropped from the selection.
	ErrSeatTaken = errors.New("seat already taken")
	// ErrSeatNotFound means the seat id does not exist in the ledger.
	ErrSeatNotFound = repository.ErrSeatNotFound
	// ErrQuotaExceeded means the request needs more tickets than remain.
	ErrQuotaExceeded = errors.New("ticket quota exceeded")
	// ErrStoreUnavailable wraps any failure talking to the ledger.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	// ErrPartialCommit marks a durable skew between the Seats and the
	// Whitelist tables. It must reach an operator.
	ErrPartialCommit = errors.New("partial commit: seats and quota out of sync")
	// ErrNothingBooked means a confirm claimed no seat at all.
	ErrNothingBooked = errors.New("no seat could be booked")
	// ErrEmptySelection means confirm was called with no seats selected.
	ErrEmptySelection = errors.New("no seats selected")
	// ErrInvalidHolder means a claim was attempted without holder name or
	// contact; such a seat would still read as available.
	ErrInvalidHolder = errors.New("holder name and contact are required")
	// ErrSessionHalted blocks state changes on a session with an open
	// incident.
	ErrSessionHalted = errors.New("session halted pending manual reconciliation")
)

// StoreError wraps a ledger failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStoreUnavailable, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStoreUnavailable) hold for every StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// storeErr wraps err unless it is already a domain error.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) || errors.Is(err, ErrSeatNotFound) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// PartialCommitError reports seats whose reservation state no longer matches
// the quota bookkeeping: claimed seats whose TicketsUsed write failed, or
// released seats whose refund failed.
type PartialCommitError struct {
	Op    string   // "confirm" or "change-seats"
	Seats []string // seats already claimed or already released
	Err   error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("%s: %v (seats %s): %v", e.Op, ErrPartialCommit, strings.Join(e.Seats, ","), e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPartialCommit) hold for every PartialCommitError.
func (e *PartialCommitError) Is(target error) bool { return target == ErrPartialCommit }
