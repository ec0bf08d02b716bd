package ledger

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"
)

// XLSXStore keeps the ledger in an Excel workbook with one worksheet per
// table. Every WriteCells call saves the workbook, so the file on disk is
// always the source of truth between calls. Reads reopen the file so edits
// made by an operator in a spreadsheet program are picked up.
type XLSXStore struct {
	path string
	mu   sync.Mutex
}

// OpenXLSX checks that the workbook exists and holds both tables.
func OpenXLSX(path string) (*XLSXStore, error) {
	s := &XLSXStore{path: path}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	for _, t := range []string{TableSeats, TableWhitelist} {
		if idx, err := f.GetSheetIndex(t); err != nil || idx < 0 {
			return nil, fmt.Errorf("%w: worksheet %q missing in %s", ErrUnknownTable, t, path)
		}
	}
	return s, nil
}

// CreateXLSX writes a new workbook with empty Seats and Whitelist sheets
// carrying the default headers. It refuses to overwrite an existing file.
func CreateXLSX(path string) (*XLSXStore, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("workbook %s already exists", path)
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", TableSeats); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(TableWhitelist); err != nil {
		return nil, err
	}
	for _, t := range []string{TableSeats, TableWhitelist} {
		cols, _ := Columns(t)
		header := make([]interface{}, len(cols))
		for i, c := range cols {
			header[i] = c
		}
		if err := f.SetSheetRow(t, "A1", &header); err != nil {
			return nil, err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("save workbook %s: %w", path, err)
	}
	return &XLSXStore{path: path}, nil
}

// AppendRows adds data rows under the existing ones, mapping values onto
// the header columns. Used by the ledger-init tool.
func (s *XLSXStore) AppendRows(table string, rows []map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()
	all, err := f.GetRows(table)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if len(all) == 0 {
		return fmt.Errorf("worksheet %s has no header row", table)
	}
	header := all[0]
	next := len(all) + 1
	for _, r := range rows {
		norm := make(map[string]string, len(r))
		for k, v := range r {
			norm[NormalizeHeader(k)] = v
		}
		line := make([]interface{}, len(header))
		for i, h := range header {
			line[i] = norm[NormalizeHeader(h)]
		}
		cell, err := excelize.CoordinatesToCellName(1, next)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(table, cell, &line); err != nil {
			return err
		}
		next++
	}
	return f.Save()
}

// ReadTable returns every non-empty data row below the header.
func (s *XLSXStore) ReadTable(_ context.Context, table string) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()
	all, err := f.GetRows(table)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if len(all) == 0 {
		return []Row{}, nil
	}
	header := all[0]
	out := make([]Row, 0, len(all)-1)
	for i, line := range all[1:] {
		if isBlank(line) {
			continue
		}
		out = append(out, rowFromLine(header, line, i+FirstDataRow))
	}
	return out, nil
}

// ReadRow returns the row at ref.
func (s *XLSXStore) ReadRow(_ context.Context, table string, ref int) (Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return Row{}, fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()
	all, err := f.GetRows(table)
	if err != nil {
		return Row{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if ref < FirstDataRow || ref > len(all) {
		return Row{}, fmt.Errorf("%w: %s row %d", ErrRowNotFound, table, ref)
	}
	return rowFromLine(all[0], all[ref-1], ref), nil
}

// rowFromLine keys the cells of line by the normalized header.
func rowFromLine(header, line []string, ref int) Row {
	vals := make(map[string]string, len(header))
	for c, h := range header {
		key := NormalizeHeader(h)
		if key == "" {
			continue
		}
		if c < len(line) {
			vals[key] = line[c]
		} else {
			vals[key] = ""
		}
	}
	return Row{Ref: ref, Values: vals}
}

// WriteCells resolves every header first, then sets all cells and saves the
// workbook once.
func (s *XLSXStore) WriteCells(_ context.Context, table string, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()
	all, err := f.GetRows(table)
	if err != nil || len(all) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	colIdx := make(map[string]int, len(all[0]))
	for i, h := range all[0] {
		colIdx[NormalizeHeader(h)] = i + 1
	}
	cells := make([]string, len(updates))
	for i, u := range updates {
		if u.Row < FirstDataRow || u.Row > len(all) {
			return fmt.Errorf("%w: %s row %d", ErrRowNotFound, table, u.Row)
		}
		col, ok := colIdx[NormalizeHeader(u.Column)]
		if !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, u.Column)
		}
		name, err := excelize.CoordinatesToCellName(col, u.Row)
		if err != nil {
			return err
		}
		cells[i] = name
	}
	for i, u := range updates {
		if err := f.SetCellStr(table, cells[i], u.Value); err != nil {
			return err
		}
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save workbook %s: %w", s.path, err)
	}
	return nil
}

// FindRow returns the ref of the first row whose keyColumn equals key.
func (s *XLSXStore) FindRow(ctx context.Context, table, keyColumn, key string) (int, error) {
	rows, err := s.ReadTable(ctx, table)
	if err != nil {
		return 0, err
	}
	return findInRows(rows, keyColumn, key)
}

func isBlank(line []string) bool {
	for _, v := range line {
		if v != "" {
			return false
		}
	}
	return true
}

// ImportRows reads sheet of another workbook as header-keyed rows, the
// headers as written in its first row. An empty sheet name means the first
// sheet. Blank rows are skipped.
func ImportRows(path, sheet string) ([]map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: worksheet %q in %s", ErrUnknownTable, sheet, path)
	}
	if len(all) == 0 {
		return nil, nil
	}
	header := all[0]
	var out []map[string]string
	for _, line := range all[1:] {
		if isBlank(line) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(line) {
				row[h] = line[i]
			} else {
				row[h] = ""
			}
		}
		out = append(out, row)
	}
	return out, nil
}
