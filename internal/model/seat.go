package model

import "strings"

// SeatStatus is the effective reservation state of a seat.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
)

// Seat describes one seat of the event grid as read from the Seats table.
//
// Fields:
//
//	SeatID          unique id, also the ledger key column
//	Section         seating section used for filtering
//	Row             row label (A, B, ...)
//	Col             column number used for grid layout and sorting
//	StoredStatus    Status cell as found in the ledger; informational only
//	ReservedBy      holder name written on claim
//	ReservedContact holder contact written on claim
//	Ref             ledger row number of the seat
type Seat struct {
	SeatID          string `json:"seat_id"`
	Section         string `json:"section"`
	Row             string `json:"row"`
	Col             int    `json:"col"`
	StoredStatus    string `json:"-"`
	ReservedBy      string `json:"reserved_by,omitempty"`
	ReservedContact string `json:"-"`
	Ref             int    `json:"-"`
}

// EffectiveStatus derives the status from the holder fields alone. The
// stored Status cell is hand-edited often enough that it is never trusted.
func (s Seat) EffectiveStatus() SeatStatus {
	if strings.TrimSpace(s.ReservedBy) != "" && strings.TrimSpace(s.ReservedContact) != "" {
		return SeatReserved
	}
	return SeatAvailable
}

// IsAvailable reports whether the seat can be claimed.
func (s Seat) IsAvailable() bool {
	return s.EffectiveStatus() == SeatAvailable
}
