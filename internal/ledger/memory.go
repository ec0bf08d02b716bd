package ledger

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps both tables in process memory. It backs tests and the
// "memory" ledger backend used for local demos.
type MemoryStore struct {
	mu      sync.RWMutex
	headers map[string][]string
	rows    map[string][]map[string]string
}

// NewMemoryStore returns an empty store holding the Seats and Whitelist
// tables with their default headers.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{
		headers: make(map[string][]string),
		rows:    make(map[string][]map[string]string),
	}
	for _, t := range []string{TableSeats, TableWhitelist} {
		cols, _ := Columns(t)
		m.headers[t] = append([]string(nil), cols...)
		m.rows[t] = nil
	}
	return m
}

// Append adds a data row; values are keyed by header name.
func (m *MemoryStore) Append(table string, values map[string]string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.headers[table]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	row := make(map[string]string, len(values))
	for k, v := range values {
		row[NormalizeHeader(k)] = v
	}
	m.rows[table] = append(m.rows[table], row)
	return len(m.rows[table]) - 1 + FirstDataRow, nil
}

// ReadTable returns a copy of every data row in insertion order.
func (m *MemoryStore) ReadTable(_ context.Context, table string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.rows[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	out := make([]Row, 0, len(data))
	for i, r := range data {
		vals := make(map[string]string, len(r))
		for k, v := range r {
			vals[k] = v
		}
		out = append(out, Row{Ref: i + FirstDataRow, Values: vals})
	}
	return out, nil
}

// ReadRow returns a copy of the row at ref.
func (m *MemoryStore) ReadRow(_ context.Context, table string, ref int) (Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.rows[table]
	if !ok {
		return Row{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	idx := ref - FirstDataRow
	if idx < 0 || idx >= len(data) {
		return Row{}, fmt.Errorf("%w: %s row %d", ErrRowNotFound, table, ref)
	}
	vals := make(map[string]string, len(data[idx]))
	for k, v := range data[idx] {
		vals[k] = v
	}
	return Row{Ref: ref, Values: vals}, nil
}

// WriteCells validates the whole batch before applying any cell.
func (m *MemoryStore) WriteCells(_ context.Context, table string, updates []CellUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.rows[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	known := make(map[string]bool, len(m.headers[table]))
	for _, h := range m.headers[table] {
		known[NormalizeHeader(h)] = true
	}
	for _, u := range updates {
		idx := u.Row - FirstDataRow
		if idx < 0 || idx >= len(data) {
			return fmt.Errorf("%w: %s row %d", ErrRowNotFound, table, u.Row)
		}
		if !known[NormalizeHeader(u.Column)] {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, u.Column)
		}
	}
	for _, u := range updates {
		data[u.Row-FirstDataRow][NormalizeHeader(u.Column)] = u.Value
	}
	return nil
}

// FindRow returns the ref of the first row whose keyColumn equals key.
func (m *MemoryStore) FindRow(ctx context.Context, table, keyColumn, key string) (int, error) {
	rows, err := m.ReadTable(ctx, table)
	if err != nil {
		return 0, err
	}
	return findInRows(rows, keyColumn, key)
}
