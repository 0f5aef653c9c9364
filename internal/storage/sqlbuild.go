package storage

import (
	"fmt"
	"strings"
	"time"

	"moneymanager/internal/core"
)

// Dialect describes how a SQL backend spells placeholders and dates.
type Dialect struct {
	Placeholder func(n int) string
	DateColumn  string
	DateValue   func(time.Time) any
	// UnboundedLimit is written as the LIMIT when only an offset is set.
	// Empty omits the LIMIT clause.
	UnboundedLimit string
}

// Where renders the WHERE clause (without the keyword) and its arguments for
// every non-paging predicate of q. Argument numbering starts at 1.
func (d Dialect) Where(q core.Query) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, d.Placeholder(len(args))))
	}

	if q.UserID != "" {
		add("user_id = %s", q.UserID)
	}
	if q.Range != nil {
		add(d.DateColumn+" >= %s", d.DateValue(q.Range.Start))
		add(d.DateColumn+" <= %s", d.DateValue(q.Range.End))
	}
	if q.Filters.Division != "" {
		add("division = %s", string(q.Filters.Division))
	}
	if q.Filters.Category != "" {
		add("category = %s", q.Filters.Category)
	}
	if q.Filters.Account != "" {
		add("account = %s", string(q.Filters.Account))
	}
	if q.Type != "" {
		add("type = %s", string(q.Type))
	}
	if q.TransfersOnly {
		conds = append(conds, "transfer_id IS NOT NULL")
	}

	if len(conds) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(conds, " AND "), args
}

// OrderAndPage renders ORDER BY plus LIMIT/OFFSET for q. The id tiebreak keeps
// pages stable when several records share a date.
func (d Dialect) OrderAndPage(q core.Query) string {
	dir := "DESC"
	if q.Sort == core.DateAsc {
		dir = "ASC"
	}
	clause := fmt.Sprintf(" ORDER BY %s %s, id %s", d.DateColumn, dir, dir)
	if q.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT %d", q.Limit)
	} else if q.Skip > 0 && d.UnboundedLimit != "" {
		clause += " LIMIT " + d.UnboundedLimit
	}
	if q.Skip > 0 {
		clause += fmt.Sprintf(" OFFSET %d", q.Skip)
	}
	return clause
}

// NullableTransferID maps the empty transfer id to SQL NULL.
func NullableTransferID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
