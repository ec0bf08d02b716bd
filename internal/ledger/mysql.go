package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// sqlTable maps a ledger table onto a MySQL table. Every cell is stored as
// VARCHAR so the store keeps the string-valued contract of a spreadsheet.
type sqlTable struct {
	name    string
	headers []string
	columns map[string]string // normalized header -> sql column
}

var sqlTables = map[string]sqlTable{
	TableSeats: {
		name:    "ledger_seats",
		headers: SeatColumns,
		columns: map[string]string{
			"seatid":     "seat_id",
			"section":    "section",
			"row":        "row_label",
			"col":        "col",
			"status":     "status",
			"reservedby": "reserved_by",
			"phoneno":    "phone_no",
		},
	},
	TableWhitelist: {
		name:    "ledger_whitelist",
		headers: WhitelistColumns,
		columns: map[string]string{
			"name":           "name",
			"receiptno":      "receipt_no",
			"ticketsallowed": "tickets_allowed",
			"ticketsused":    "tickets_used",
			"contact":        "contact",
		},
	},
}

// MySQLStore keeps the ledger in two MySQL tables keyed by row_no. Open the
// handle with clientFoundRows=true so UPDATE reports matched rows rather
// than changed rows (see database.Open).
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore wraps an open handle.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// EnsureSchema creates the ledger tables when missing.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ledger_seats (
			row_no      INT UNSIGNED NOT NULL PRIMARY KEY,
			seat_id     VARCHAR(64)  NOT NULL DEFAULT '',
			section     VARCHAR(128) NOT NULL DEFAULT '',
			row_label   VARCHAR(32)  NOT NULL DEFAULT '',
			col         VARCHAR(16)  NOT NULL DEFAULT '',
			status      VARCHAR(32)  NOT NULL DEFAULT '',
			reserved_by VARCHAR(255) NOT NULL DEFAULT '',
			phone_no    VARCHAR(64)  NOT NULL DEFAULT '',
			KEY idx_ledger_seats_seat_id (seat_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS ledger_whitelist (
			row_no          INT UNSIGNED NOT NULL PRIMARY KEY,
			name            VARCHAR(255) NOT NULL DEFAULT '',
			receipt_no      VARCHAR(64)  NOT NULL DEFAULT '',
			tickets_allowed VARCHAR(16)  NOT NULL DEFAULT '',
			tickets_used    VARCHAR(16)  NOT NULL DEFAULT '',
			contact         VARCHAR(64)  NOT NULL DEFAULT ''
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func lookupSQLTable(table string) (sqlTable, error) {
	t, ok := sqlTables[table]
	if !ok {
		return sqlTable{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return t, nil
}

// selectList returns the SQL columns in header order.
func (t sqlTable) selectList() []string {
	cols := make([]string, len(t.headers))
	for i, h := range t.headers {
		cols[i] = t.columns[NormalizeHeader(h)]
	}
	return cols
}

// ReadTable returns all rows ordered by row_no.
func (s *MySQLStore) ReadTable(ctx context.Context, table string) ([]Row, error) {
	t, err := lookupSQLTable(table)
	if err != nil {
		return nil, err
	}
	cols := t.selectList()
	q := "SELECT row_no, " + strings.Join(cols, ", ") + " FROM " + t.name + " ORDER BY row_no"
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var ref int
		vals := make([]string, len(cols))
		dest := make([]interface{}, 0, len(cols)+1)
		dest = append(dest, &ref)
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		r := Row{Ref: ref, Values: make(map[string]string, len(cols))}
		for i, h := range t.headers {
			r.Values[NormalizeHeader(h)] = vals[i]
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Row{}
	}
	return out, nil
}

// ReadRow returns the row stored under row_no = ref.
func (s *MySQLStore) ReadRow(ctx context.Context, table string, ref int) (Row, error) {
	t, err := lookupSQLTable(table)
	if err != nil {
		return Row{}, err
	}
	cols := t.selectList()
	q := "SELECT " + strings.Join(cols, ", ") + " FROM " + t.name + " WHERE row_no = ?"
	vals := make([]string, len(cols))
	dest := make([]interface{}, len(cols))
	for i := range vals {
		dest[i] = &vals[i]
	}
	if err := s.db.QueryRowContext(ctx, q, ref).Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return Row{}, fmt.Errorf("%w: %s row %d", ErrRowNotFound, table, ref)
		}
		return Row{}, err
	}
	r := Row{Ref: ref, Values: make(map[string]string, len(cols))}
	for i, h := range t.headers {
		r.Values[NormalizeHeader(h)] = vals[i]
	}
	return r, nil
}

// WriteCells groups the updates per row and applies them inside one
// transaction, one UPDATE per row.
func (s *MySQLStore) WriteCells(ctx context.Context, table string, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	t, err := lookupSQLTable(table)
	if err != nil {
		return err
	}
	type assignment struct {
		col string
		val string
	}
	perRow := make(map[int][]assignment)
	for _, u := range updates {
		col, ok := t.columns[NormalizeHeader(u.Column)]
		if !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, u.Column)
		}
		perRow[u.Row] = append(perRow[u.Row], assignment{col: col, val: u.Value})
	}
	refs := make([]int, 0, len(perRow))
	for ref := range perRow {
		refs = append(refs, ref)
	}
	sort.Ints(refs)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, ref := range refs {
		sets := make([]string, 0, len(perRow[ref]))
		args := make([]interface{}, 0, len(perRow[ref])+1)
		for _, a := range perRow[ref] {
			sets = append(sets, a.col+" = ?")
			args = append(args, a.val)
		}
		args = append(args, ref)
		q := "UPDATE " + t.name + " SET " + strings.Join(sets, ", ") + " WHERE row_no = ?"
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s row %d", ErrRowNotFound, table, ref)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// FindRow looks the key up with an indexed query.
func (s *MySQLStore) FindRow(ctx context.Context, table, keyColumn, key string) (int, error) {
	t, err := lookupSQLTable(table)
	if err != nil {
		return 0, err
	}
	col, ok := t.columns[NormalizeHeader(keyColumn)]
	if !ok {
		return 0, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, keyColumn)
	}
	q := "SELECT row_no FROM " + t.name + " WHERE TRIM(" + col + ") = ? ORDER BY row_no LIMIT 1"
	var ref int
	if err := s.db.QueryRowContext(ctx, q, strings.TrimSpace(key)).Scan(&ref); err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrRowNotFound
		}
		return 0, err
	}
	return ref, nil
}

// AppendRows inserts rows after the current last row_no.
func (s *MySQLStore) AppendRows(ctx context.Context, table string, rows []map[string]string) error {
	t, err := lookupSQLTable(table)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx, "SELECT MAX(row_no) FROM "+t.name).Scan(&last); err != nil {
		return err
	}
	next := FirstDataRow
	if last.Valid {
		next = int(last.Int64) + 1
	}
	cols := t.selectList()
	q := "INSERT INTO " + t.name + " (row_no, " + strings.Join(cols, ", ") + ") VALUES (?" + strings.Repeat(", ?", len(cols)) + ")"
	for _, r := range rows {
		norm := make(map[string]string, len(r))
		for k, v := range r {
			norm[NormalizeHeader(k)] = v
		}
		args := make([]interface{}, 0, len(cols)+1)
		args = append(args, next)
		for _, h := range t.headers {
			args = append(args, norm[NormalizeHeader(h)])
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
		next++
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
