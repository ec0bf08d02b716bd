package ledger

// Column headers of the Seats table.
const (
	ColSeatID     = "SeatID"
	ColSection    = "Section"
	ColRow        = "Row"
	ColCol        = "Col"
	ColStatus     = "Status"
	ColReservedBy = "ReservedBy"
	ColPhoneNo    = "PhoneNo"
)

// Column headers of the Whitelist table.
const (
	ColName           = "Name"
	ColReceiptNo      = "ReceiptNo"
	ColTicketsAllowed = "TicketsAllowed"
	ColTicketsUsed    = "TicketsUsed"
	ColContact        = "Contact"
)

// SeatColumns is the header row of a freshly created Seats table.
var SeatColumns = []string{ColSeatID, ColSection, ColRow, ColCol, ColStatus, ColReservedBy, ColPhoneNo}

// WhitelistColumns is the header row of a freshly created Whitelist table.
var WhitelistColumns = []string{ColName, ColReceiptNo, ColTicketsAllowed, ColTicketsUsed, ColContact}

// Columns returns the default header row for table.
func Columns(table string) ([]string, bool) {
	switch table {
	case TableSeats:
		return SeatColumns, true
	case TableWhitelist:
		return WhitelistColumns, true
	}
	return nil, false
}
