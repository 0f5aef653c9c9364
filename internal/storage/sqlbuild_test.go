package storage

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"moneymanager/internal/core"
)

var testDialect = Dialect{
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	DateColumn:  "date",
	DateValue:   func(t time.Time) any { return t.UnixMilli() },

	UnboundedLimit: "-1",
}

func TestDialectWhere(t *testing.T) {
	rng := core.DateRange{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 31, 23, 59, 59, 999_000_000, time.UTC),
	}
	where, args := testDialect.Where(core.Query{
		UserID:        "u1",
		Range:         &rng,
		Filters:       core.Filters{Division: core.Office, Category: "rent", Account: core.Bank},
		TransfersOnly: true,
	})

	want := "user_id = $1 AND date >= $2 AND date <= $3 AND division = $4 AND category = $5 AND account = $6 AND transfer_id IS NOT NULL"
	if where != want {
		t.Fatalf("where =\n%s\nwant\n%s", where, want)
	}
	wantArgs := []any{"u1", rng.Start.UnixMilli(), rng.End.UnixMilli(), "office", "rent", "bank"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args = %v, want %v", args, wantArgs)
	}
}

func TestDialectWhereEmpty(t *testing.T) {
	where, args := testDialect.Where(core.Query{})
	if where != "1 = 1" || args != nil {
		t.Fatalf("got %q %v", where, args)
	}
}

func TestDialectOrderAndPage(t *testing.T) {
	tests := []struct {
		q    core.Query
		want string
	}{
		{core.Query{}, " ORDER BY date DESC, id DESC"},
		{core.Query{Sort: core.DateAsc, Limit: 10}, " ORDER BY date ASC, id ASC LIMIT 10"},
		{core.Query{Limit: 50, Skip: 100}, " ORDER BY date DESC, id DESC LIMIT 50 OFFSET 100"},
		{core.Query{Skip: 5}, " ORDER BY date DESC, id DESC LIMIT -1 OFFSET 5"},
	}
	for _, tt := range tests {
		if got := testDialect.OrderAndPage(tt.q); got != tt.want {
			t.Errorf("OrderAndPage(%+v) = %q, want %q", tt.q, got, tt.want)
		}
	}

	noLimit := testDialect
	noLimit.UnboundedLimit = ""
	if got := noLimit.OrderAndPage(core.Query{Skip: 5}); got != " ORDER BY date DESC, id DESC OFFSET 5" {
		t.Errorf("offset without limit = %q", got)
	}
}
