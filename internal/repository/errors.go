// Package repository maps the ledger's string-valued tables onto the booking
// model. Seats and whitelist rows are read and written only through the
// ledger.Store contract so any backend can sit underneath.
package repository

import "errors"

// ErrSeatNotFound is returned when no Seats row carries the requested id.
var ErrSeatNotFound = errors.New("seat not found")
