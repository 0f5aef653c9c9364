package core

import (
	"strings"
	"time"
)

// SortOrder orders query results by transaction date.
type SortOrder string

const (
	DateDesc SortOrder = "-date"
	DateAsc  SortOrder = "date"
)

// ParseSortOrder maps the "date" / "-date" query syntax to a SortOrder.
// Anything else falls back to newest first.
func ParseSortOrder(s string) SortOrder {
	if strings.TrimSpace(s) == string(DateAsc) {
		return DateAsc
	}
	return DateDesc
}

// DateRange is an inclusive [Start, End] interval.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the inclusive range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Filters narrows a query by exact field equality. Empty fields do not filter.
type Filters struct {
	Division Division
	Category string
	Account  Account
}

// Query describes a user-scoped read against the transaction store.
type Query struct {
	UserID        string // empty only for maintenance scans across all users
	Range         *DateRange
	Filters       Filters
	Type          TxType
	TransfersOnly bool
	Sort          SortOrder
	Limit         int
	Skip          int
}

// Matches applies every non-paging predicate of q to t.
func (q Query) Matches(t Transaction) bool {
	if q.UserID != "" && t.UserID != q.UserID {
		return false
	}
	if q.Range != nil && !q.Range.Contains(t.Date) {
		return false
	}
	if q.Filters.Division != "" && t.Division != q.Filters.Division {
		return false
	}
	if q.Filters.Category != "" && t.Category != q.Filters.Category {
		return false
	}
	if q.Filters.Account != "" && t.Account != q.Filters.Account {
		return false
	}
	if q.Type != "" && t.Type != q.Type {
		return false
	}
	if q.TransfersOnly && t.TransferID == "" {
		return false
	}
	return true
}

// Page is one page of a user's transaction history.
type Page struct {
	Transactions []Transaction
	Total        int
	Page         int
	Pages        int
	Limit        int
}

// DefaultHistoryLimit is the page size used when the caller does not pick one.
const DefaultHistoryLimit = 50

// NewPage fills in the derived pagination fields.
func NewPage(txs []Transaction, total, page, limit int) Page {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Page{
		Transactions: txs,
		Total:        total,
		Page:         page,
		Pages:        pages,
		Limit:        limit,
	}
}
