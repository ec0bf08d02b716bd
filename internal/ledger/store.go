// Package ledger defines the tabular store that acts as the booking
// database. Two tables live in every ledger, Seats and Whitelist, each with a
// header row and string-valued cells. Backends: an Excel workbook, MySQL
// tables, or an in-process table set for tests and demos.
package ledger

import (
	"context"
	"errors"
	"strings"
)

// Table names shared by every backend.
const (
	TableSeats     = "Seats"
	TableWhitelist = "Whitelist"
)

// FirstDataRow is the row number of the first data row. Row 1 holds the
// headers, so row refs line up with spreadsheet row numbers.
const FirstDataRow = 2

var (
	// ErrRowNotFound is returned by FindRow when no row carries the key and
	// by ReadRow and WriteCells for a ref outside the table.
	ErrRowNotFound = errors.New("ledger: row not found")
	// ErrUnknownTable is returned for a table the backend does not hold.
	ErrUnknownTable = errors.New("ledger: unknown table")
	// ErrUnknownColumn is returned when a write names a column missing
	// from the table header.
	ErrUnknownColumn = errors.New("ledger: unknown column")
)

// Row is one data row. Values are keyed by normalized header name.
type Row struct {
	Ref    int               `json:"ref"`
	Values map[string]string `json:"values"`
}

// Get returns the cell under header col, trimmed. Missing cells read as "".
func (r Row) Get(col string) string {
	return strings.TrimSpace(r.Values[NormalizeHeader(col)])
}

// Raw returns the cell under header col without trimming.
func (r Row) Raw(col string) string {
	return r.Values[NormalizeHeader(col)]
}

// CellUpdate addresses one cell by row ref and header name.
type CellUpdate struct {
	Row    int
	Column string
	Value  string
}

// Store is the contract the booking core needs from its backing ledger.
// All cells of one WriteCells call are applied together; there is no
// atomicity across calls. ReadRow always reads the backend.
type Store interface {
	ReadTable(ctx context.Context, table string) ([]Row, error)
	ReadRow(ctx context.Context, table string, ref int) (Row, error)
	WriteCells(ctx context.Context, table string, updates []CellUpdate) error
	FindRow(ctx context.Context, table, keyColumn, key string) (int, error)
}

// NormalizeHeader lowercases and trims a header so lookups tolerate the
// casing and stray spaces people leave in spreadsheets.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// findInRows scans rows for the first whose trimmed keyColumn equals key.
func findInRows(rows []Row, keyColumn, key string) (int, error) {
	key = strings.TrimSpace(key)
	for _, r := range rows {
		if r.Get(keyColumn) == key {
			return r.Ref, nil
		}
	}
	return 0, ErrRowNotFound
}
