package repository

import (
	"strconv"
	"strings"
)

// atoiOrZero parses a ledger cell. Empty or non-numeric cells count as 0.
func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
