package core

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// Totals maps a key (account, category, division) to a running amount.
// Missing keys read as zero and are created on first Add.
type Totals map[string]decimal.Decimal

// NewTotals returns Totals with every given key present at zero.
func NewTotals(keys ...string) Totals {
	t := make(Totals, len(keys))
	for _, k := range keys {
		t[k] = decimal.Zero
	}
	return t
}

// Add adds amount to key, creating the entry when unseen.
func (t Totals) Add(key string, amount decimal.Decimal) {
	t[key] = t.Get(key).Add(amount)
}

// Sub subtracts amount from key, creating the entry when unseen.
func (t Totals) Sub(key string, amount decimal.Decimal) {
	t[key] = t.Get(key).Sub(amount)
}

// Get returns the amount stored under key, or zero.
func (t Totals) Get(key string) decimal.Decimal {
	if v, ok := t[key]; ok {
		return v
	}
	return decimal.Zero
}

// Keys returns the keys in lexical order.
func (t Totals) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy of t.
func (t Totals) Clone() Totals {
	if t == nil {
		return nil
	}
	c := make(Totals, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

// Equal reports whether both mappings hold the same keys with numerically equal amounts.
func (t Totals) Equal(o Totals) bool {
	if len(t) != len(o) {
		return false
	}
	for k, v := range t {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Summary is the folded view of a user's transactions over a date range.
//
// Category and division totals are gross sums of amounts regardless of type,
// while account balances are net of inflows and outflows.
type Summary struct {
	TotalIncome       decimal.Decimal `json:"totalIncome"`
	TotalExpense      decimal.Decimal `json:"totalExpense"`
	Balance           decimal.Decimal `json:"balance"`
	AccountBalances   Totals          `json:"accountBalances"`
	CategoryBreakdown Totals          `json:"categoryBreakdown"`
	DivisionBreakdown Totals          `json:"divisionBreakdown"`
}

// NewSummary returns an empty summary with the fixed account and division slots seeded.
func NewSummary() Summary {
	accounts := make([]string, 0, 4)
	for _, a := range Accounts() {
		accounts = append(accounts, string(a))
	}
	divisions := make([]string, 0, 2)
	for _, d := range Divisions() {
		divisions = append(divisions, string(d))
	}
	return Summary{
		TotalIncome:       decimal.Zero,
		TotalExpense:      decimal.Zero,
		Balance:           decimal.Zero,
		AccountBalances:   NewTotals(accounts...),
		CategoryBreakdown: NewTotals(),
		DivisionBreakdown: NewTotals(divisions...),
	}
}

// Clone returns a copy of s whose breakdown maps are not shared with s.
func (s Summary) Clone() Summary {
	s.AccountBalances = s.AccountBalances.Clone()
	s.CategoryBreakdown = s.CategoryBreakdown.Clone()
	s.DivisionBreakdown = s.DivisionBreakdown.Clone()
	return s
}

// Equal compares two summaries numerically.
func (s Summary) Equal(o Summary) bool {
	return s.TotalIncome.Equal(o.TotalIncome) &&
		s.TotalExpense.Equal(o.TotalExpense) &&
		s.Balance.Equal(o.Balance) &&
		s.AccountBalances.Equal(o.AccountBalances) &&
		s.CategoryBreakdown.Equal(o.CategoryBreakdown) &&
		s.DivisionBreakdown.Equal(o.DivisionBreakdown)
}

// MarshalBinary lets caches store summaries as JSON.
func (s Summary) MarshalBinary() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (s *Summary) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, s)
}
