package ledger

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockMySQL(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMySQLStore(db), mock
}

func TestMySQLStore_ReadTable(t *testing.T) {
	s, mock := newMockMySQL(t)
	rows := sqlmock.NewRows([]string{"row_no", "seat_id", "section", "row_label", "col", "status", "reserved_by", "phone_no"}).
		AddRow(2, "A1", "Main", "A", "1", "", "", "").
		AddRow(3, "A2", "Main", "A", "2", "reserved", "Alice", "0123")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT row_no, seat_id, section, row_label, col, status, reserved_by, phone_no FROM ledger_seats ORDER BY row_no")).
		WillReturnRows(rows)

	got, err := s.ReadTable(context.Background(), TableSeats)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[1].Ref)
	assert.Equal(t, "Alice", got[1].Get(ColReservedBy))
	assert.Equal(t, "A", got[0].Get(ColRow))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_WriteCellsOneTransaction(t *testing.T) {
	s, mock := newMockMySQL(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ledger_seats SET status = ?, reserved_by = ?, phone_no = ? WHERE row_no = ?")).
		WithArgs("", "", "", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ledger_seats SET status = ?, reserved_by = ?, phone_no = ? WHERE row_no = ?")).
		WithArgs("", "", "", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WriteCells(context.Background(), TableSeats, []CellUpdate{
		{Row: 5, Column: ColStatus}, {Row: 5, Column: ColReservedBy}, {Row: 5, Column: ColPhoneNo},
		{Row: 2, Column: ColStatus}, {Row: 2, Column: ColReservedBy}, {Row: 2, Column: ColPhoneNo},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_WriteCellsMissingRowRollsBack(t *testing.T) {
	s, mock := newMockMySQL(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ledger_whitelist SET tickets_used = ? WHERE row_no = ?")).
		WithArgs("3", 7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.WriteCells(context.Background(), TableWhitelist, []CellUpdate{{Row: 7, Column: ColTicketsUsed, Value: "3"}})
	assert.ErrorIs(t, err, ErrRowNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_WriteCellsExecErrorRollsBack(t *testing.T) {
	s, mock := newMockMySQL(t)
	boom := errors.New("lock wait timeout")
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ledger_whitelist").WillReturnError(boom)
	mock.ExpectRollback()

	err := s.WriteCells(context.Background(), TableWhitelist, []CellUpdate{{Row: 2, Column: ColTicketsUsed, Value: "1"}})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_UnknownColumnNoQuery(t *testing.T) {
	s, mock := newMockMySQL(t)
	err := s.WriteCells(context.Background(), TableSeats, []CellUpdate{{Row: 2, Column: "Price", Value: "1"}})
	assert.ErrorIs(t, err, ErrUnknownColumn)
	_, err = s.ReadTable(context.Background(), "Orders")
	assert.ErrorIs(t, err, ErrUnknownTable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_FindRow(t *testing.T) {
	s, mock := newMockMySQL(t)
	q := regexp.QuoteMeta("SELECT row_no FROM ledger_seats WHERE TRIM(seat_id) = ? ORDER BY row_no LIMIT 1")
	mock.ExpectQuery(q).WithArgs("A2").WillReturnRows(sqlmock.NewRows([]string{"row_no"}).AddRow(3))
	mock.ExpectQuery(q).WithArgs("Z9").WillReturnRows(sqlmock.NewRows([]string{"row_no"}))

	ref, err := s.FindRow(context.Background(), TableSeats, "seatid", " A2 ")
	require.NoError(t, err)
	assert.Equal(t, 3, ref)

	_, err = s.FindRow(context.Background(), TableSeats, ColSeatID, "Z9")
	assert.ErrorIs(t, err, ErrRowNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_AppendRows(t *testing.T) {
	s, mock := newMockMySQL(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(row_no) FROM ledger_whitelist")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_whitelist (row_no, name, receipt_no, tickets_allowed, tickets_used, contact) VALUES (?, ?, ?, ?, ?, ?)")).
		WithArgs(2, "Alice", "R-1", "2", "", "0123").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := s.AppendRows(context.Background(), TableWhitelist, []map[string]string{
		{"Name": "Alice", "ReceiptNo": "R-1", "TicketsAllowed": "2", "Contact": "0123"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_EnsureSchema(t *testing.T) {
	s, mock := newMockMySQL(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS ledger_seats").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS ledger_whitelist").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_ReadRow(t *testing.T) {
	s, mock := newMockMySQL(t)
	q := regexp.QuoteMeta("SELECT seat_id, section, row_label, col, status, reserved_by, phone_no FROM ledger_seats WHERE row_no = ?")
	mock.ExpectQuery(q).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id", "section", "row_label", "col", "status", "reserved_by", "phone_no"}).
			AddRow("A2", "Main", "A", "2", "reserved", "Alice", "0123"))
	mock.ExpectQuery(q).WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"seat_id"}))

	row, err := s.ReadRow(context.Background(), TableSeats, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, row.Ref)
	assert.Equal(t, "Alice", row.Get(ColReservedBy))

	_, err = s.ReadRow(context.Background(), TableSeats, 9)
	assert.ErrorIs(t, err, ErrRowNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
