package model

// WhitelistRow is one purchase record of the Whitelist table.
type WhitelistRow struct {
	Ref            int
	Name           string // raw name field, may hold several "/"-separated names
	ReceiptNo      string
	TicketsAllowed int
	TicketsUsed    int
	Contact        string
}

// WhitelistEntry is the result of a successful whitelist lookup: the matched
// row plus the sibling group whose quotas are pooled.
type WhitelistEntry struct {
	GroupKey     string         // raw name shared verbatim by all members
	ReceiptNo    string         // receipt that matched
	MatchedRef   int            // ledger row that matched
	Contact      string         // contact of the matched row
	Members      []WhitelistRow // sibling rows in ledger order
	TotalAllowed int
	TotalUsed    int
	Unlimited    bool
}

// UnlimitedRemaining stands in for "no limit" wherever a count is needed.
const UnlimitedRemaining = 1_000_000_000

// Remaining is TotalAllowed-TotalUsed, or UnlimitedRemaining.
func (e WhitelistEntry) Remaining() int {
	if e.Unlimited {
		return UnlimitedRemaining
	}
	return e.TotalAllowed - e.TotalUsed
}

// Ref identifies the entry for later fresh re-reads.
func (e WhitelistEntry) Ref() QuotaRef {
	return QuotaRef{GroupKey: e.GroupKey, ReceiptNo: e.ReceiptNo, MatchedRef: e.MatchedRef, Unlimited: e.Unlimited}
}

// QuotaRef is what a session keeps to find its sibling group again.
type QuotaRef struct {
	GroupKey   string `json:"group_key"`
	ReceiptNo  string `json:"receipt_no"`
	MatchedRef int    `json:"matched_ref"`
	Unlimited  bool   `json:"unlimited"`
}
