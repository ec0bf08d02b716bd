package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newWorkbook(t *testing.T) (*XLSXStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	s, err := CreateXLSX(path)
	require.NoError(t, err)
	return s, path
}

func TestXLSX_CreateAppendRead(t *testing.T) {
	s, _ := newWorkbook(t)
	ctx := context.Background()
	require.NoError(t, s.AppendRows(TableSeats, []map[string]string{
		{"SeatID": "A1", "Section": "Main", "Row": "A", "Col": "1"},
		{"SeatID": "A2", "Section": "Main", "Row": "A", "Col": "2"},
	}))
	require.NoError(t, s.AppendRows(TableWhitelist, []map[string]string{
		{"Name": "Tan Mei/Tan Wei", "ReceiptNo": "SR-1001", "TicketsAllowed": "4", "TicketsUsed": "1", "Contact": "0123"},
	}))

	rows, err := s.ReadTable(ctx, TableSeats)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Ref)
	assert.Equal(t, 3, rows[1].Ref)
	assert.Equal(t, "A2", rows[1].Get(ColSeatID))
	assert.Equal(t, "", rows[1].Get(ColReservedBy))

	wl, err := s.ReadTable(ctx, TableWhitelist)
	require.NoError(t, err)
	require.Len(t, wl, 1)
	assert.Equal(t, "Tan Mei/Tan Wei", wl[0].Raw(ColName))
	assert.Equal(t, "4", wl[0].Get(ColTicketsAllowed))
}

func TestXLSX_WriteCellsPersists(t *testing.T) {
	s, path := newWorkbook(t)
	ctx := context.Background()
	require.NoError(t, s.AppendRows(TableSeats, []map[string]string{{"SeatID": "A1"}}))

	require.NoError(t, s.WriteCells(ctx, TableSeats, []CellUpdate{
		{Row: 2, Column: ColStatus, Value: "reserved"},
		{Row: 2, Column: ColReservedBy, Value: "Alice"},
		{Row: 2, Column: ColPhoneNo, Value: "0123"},
	}))

	reopened, err := OpenXLSX(path)
	require.NoError(t, err)
	rows, err := reopened.ReadTable(ctx, TableSeats)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alice", rows[0].Get(ColReservedBy))
	assert.Equal(t, "0123", rows[0].Get(ColPhoneNo))

	ref, err := reopened.FindRow(ctx, TableSeats, ColSeatID, "A1")
	require.NoError(t, err)
	assert.Equal(t, 2, ref)
}

func TestXLSX_WriteValidatesBeforeApplying(t *testing.T) {
	s, _ := newWorkbook(t)
	ctx := context.Background()
	require.NoError(t, s.AppendRows(TableSeats, []map[string]string{{"SeatID": "A1"}}))

	err := s.WriteCells(ctx, TableSeats, []CellUpdate{
		{Row: 2, Column: ColReservedBy, Value: "Alice"},
		{Row: 9, Column: ColPhoneNo, Value: "0123"},
	})
	assert.ErrorIs(t, err, ErrRowNotFound)

	err = s.WriteCells(ctx, TableSeats, []CellUpdate{{Row: 2, Column: "Price", Value: "1"}})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	rows, err := s.ReadTable(ctx, TableSeats)
	require.NoError(t, err)
	assert.Equal(t, "", rows[0].Get(ColReservedBy))
}

func TestXLSX_HeadersAreCaseInsensitive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hand-made.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", TableWhitelist))
	_, err := f.NewSheet(TableSeats)
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow(TableWhitelist, "A1", &[]interface{}{" name", "RECEIPTNO", "ticketsallowed ", "TicketsUsed", "contact"}))
	require.NoError(t, f.SetSheetRow(TableWhitelist, "A2", &[]interface{}{"Alice", "R-1", "2"}))
	require.NoError(t, f.SetSheetRow(TableSeats, "A1", &[]interface{}{"SeatID"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	s, err := OpenXLSX(path)
	require.NoError(t, err)
	rows, err := s.ReadTable(context.Background(), TableWhitelist)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "R-1", rows[0].Get(ColReceiptNo))
	assert.Equal(t, "2", rows[0].Get(ColTicketsAllowed))
	assert.Equal(t, "", rows[0].Get(ColTicketsUsed))

	require.NoError(t, s.WriteCells(context.Background(), TableWhitelist, []CellUpdate{
		{Row: 2, Column: ColTicketsUsed, Value: "1"},
	}))
	rows, err = s.ReadTable(context.Background(), TableWhitelist)
	require.NoError(t, err)
	assert.Equal(t, "1", rows[0].Get(ColTicketsUsed))
}

func TestXLSX_OpenRejectsMissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := OpenXLSX(path)
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestXLSX_CreateRefusesOverwrite(t *testing.T) {
	_, path := newWorkbook(t)
	_, err := CreateXLSX(path)
	assert.Error(t, err)
}

func TestImportRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buyers.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Name", "ReceiptNo", "TicketsAllowed"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Tan Mei", "SR-1", "2"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"Bob", "SR-2"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := ImportRows(path, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]string{"Name": "Tan Mei", "ReceiptNo": "SR-1", "TicketsAllowed": "2"}, rows[0])
	assert.Equal(t, "", rows[1]["TicketsAllowed"])

	_, err = ImportRows(path, "Missing")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestXLSX_ReadRow(t *testing.T) {
	s, _ := newWorkbook(t)
	ctx := context.Background()
	require.NoError(t, s.AppendRows(TableSeats, []map[string]string{
		{"SeatID": "A1", "Section": "Main"},
		{"SeatID": "A2", "Section": "Main", "ReservedBy": "Alice", "PhoneNo": "0123"},
	}))

	ref, err := s.FindRow(ctx, TableSeats, ColSeatID, "A2")
	require.NoError(t, err)
	row, err := s.ReadRow(ctx, TableSeats, ref)
	require.NoError(t, err)
	assert.Equal(t, 3, row.Ref)
	assert.Equal(t, "A2", row.Get(ColSeatID))
	assert.Equal(t, "Alice", row.Get(ColReservedBy))

	_, err = s.ReadRow(ctx, TableSeats, 9)
	assert.ErrorIs(t, err, ErrRowNotFound)
	_, err = s.ReadRow(ctx, TableSeats, 1)
	assert.ErrorIs(t, err, ErrRowNotFound, "the header is not a data row")
}
