// Package http provides the JSON API server and its handlers.
//
// This file implements parsing of request bodies and query strings into
// service inputs.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneymanager/internal/core"
	"moneymanager/internal/report"
	"moneymanager/internal/services"
)

// Amount accepts a JSON number or a string using either decimal separator.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return core.ErrInvalidAmount
		}
	}
	d, err := core.ParseAmount(raw)
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Date accepts RFC 3339 timestamps and plain YYYY-MM-DD dates. Values without
// an offset are read as UTC.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: date must be a string", errBadRequest)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("%w: date %q", errBadRequest, s)
}

type createRequest struct {
	Type        core.TxType   `json:"type"`
	Amount      Amount        `json:"amount"`
	Category    string        `json:"category"`
	Division    core.Division `json:"division"`
	Account     core.Account  `json:"account"`
	Description string        `json:"description"`
	Date        Date          `json:"date"`
}

func (r createRequest) toService() services.NewTransaction {
	return services.NewTransaction{
		Type:        r.Type,
		Amount:      r.Amount.Decimal,
		Category:    r.Category,
		Division:    r.Division,
		Account:     r.Account,
		Description: r.Description,
		Date:        r.Date.Time,
	}
}

type transferRequest struct {
	FromAccount core.Account `json:"fromAccount"`
	ToAccount   core.Account `json:"toAccount"`
	Amount      Amount       `json:"amount"`
	Description string       `json:"description"`
	Date        Date         `json:"date"`
}

func (r transferRequest) toService() services.TransferRequest {
	return services.TransferRequest{
		FromAccount: r.FromAccount,
		ToAccount:   r.ToAccount,
		Amount:      r.Amount.Decimal,
		Description: r.Description,
		Date:        r.Date.Time,
	}
}

// updateRequest leaves absent fields nil so they are not touched.
type updateRequest struct {
	Type        *core.TxType   `json:"type"`
	Amount      *Amount        `json:"amount"`
	Category    *string        `json:"category"`
	Division    *core.Division `json:"division"`
	Account     *core.Account  `json:"account"`
	Description *string        `json:"description"`
	Date        *Date          `json:"date"`
}

func (r updateRequest) toPatch() services.Patch {
	p := services.Patch{
		Type:        r.Type,
		Category:    r.Category,
		Division:    r.Division,
		Account:     r.Account,
		Description: r.Description,
	}
	if r.Amount != nil {
		p.Amount = &r.Amount.Decimal
	}
	if r.Date != nil && !r.Date.IsZero() {
		p.Date = &r.Date.Time
	}
	return p
}

// ParseFilters reads the division, category and account filters.
func ParseFilters(q url.Values) core.Filters {
	return core.Filters{
		Division: core.Division(strings.TrimSpace(q.Get("division"))),
		Category: strings.TrimSpace(q.Get("category")),
		Account:  core.Account(strings.TrimSpace(q.Get("account"))),
	}
}

// ParseListParams reads the list query. The period only applies when one was
// requested; sort is "date" or "-date" and limit must be a non-negative integer.
func ParseListParams(q url.Values) (services.ListParams, error) {
	p := services.ListParams{
		Filters: ParseFilters(q),
		Sort:    core.ParseSortOrder(q.Get("sort")),
	}

	period, err := report.ParsePeriodParams(q)
	if err != nil {
		return services.ListParams{}, err
	}
	if period.HasPeriod() {
		p.Period = &period
	}

	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return services.ListParams{}, fmt.Errorf("%w: limit %q", errBadRequest, v)
		}
		p.Limit = n
	}
	return p, nil
}

// ParsePageParams reads page and limit for history. Anything unparsable falls
// back to the defaults.
func ParsePageParams(q url.Values) (page, limit int) {
	page, _ = strconv.Atoi(strings.TrimSpace(q.Get("page")))
	limit, _ = strconv.Atoi(strings.TrimSpace(q.Get("limit")))
	return page, limit
}
