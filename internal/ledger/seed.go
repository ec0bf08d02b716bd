package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// SectionSpec describes one block of the generated seat grid.
type SectionSpec struct {
	Name string
	Rows int
	Cols int
}

// ParseSectionSpec reads "Name:ROWSxCOLS", e.g. "Stalls:10x20".
func ParseSectionSpec(s string) (SectionSpec, error) {
	name, dims, ok := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return SectionSpec{}, fmt.Errorf("section %q: want Name:ROWSxCOLS", s)
	}
	r, c, ok := strings.Cut(strings.ToLower(strings.TrimSpace(dims)), "x")
	if !ok {
		return SectionSpec{}, fmt.Errorf("section %q: want Name:ROWSxCOLS", s)
	}
	rows, err := strconv.Atoi(r)
	if err != nil || rows < 1 {
		return SectionSpec{}, fmt.Errorf("section %q: bad row count", s)
	}
	cols, err := strconv.Atoi(c)
	if err != nil || cols < 1 {
		return SectionSpec{}, fmt.Errorf("section %q: bad column count", s)
	}
	return SectionSpec{Name: name, Rows: rows, Cols: cols}, nil
}

// RowLabel converts a zero-based index to a row label: A..Z, AA, AB ...
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	var res []rune
	for {
		res = append(res, rune('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// SeatGrid lays the sections out one after another. Row labels keep
// counting across sections so every SeatID (row label + column) is unique.
func SeatGrid(sections []SectionSpec) []map[string]string {
	var out []map[string]string
	row := 0
	for _, sec := range sections {
		for r := 0; r < sec.Rows; r++ {
			label := RowLabel(row)
			for c := 1; c <= sec.Cols; c++ {
				out = append(out, map[string]string{
					ColSeatID:     label + strconv.Itoa(c),
					ColSection:    sec.Name,
					ColRow:        label,
					ColCol:        strconv.Itoa(c),
					ColStatus:     "Available",
					ColReservedBy: "",
					ColPhoneNo:    "",
				})
			}
			row++
		}
	}
	return out
}
