package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneymanager/internal/core"
)

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@localhost:5432/db?sslmode=disable", "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{"postgresql://localhost/db", "pgx5://localhost/db"},
		{"pgx5://localhost/db", "pgx5://localhost/db"},
	}
	for _, tt := range tests {
		if got := migrateURL(tt.in); got != tt.want {
			t.Errorf("migrateURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDialectPlaceholders(t *testing.T) {
	where, args := dialect.Where(core.Query{UserID: "u1", Type: core.Income})
	if where != "user_id = $1 AND type = $2" {
		t.Fatalf("where = %q", where)
	}
	if len(args) != 2 {
		t.Fatalf("args = %v", args)
	}
	if got := dialect.OrderAndPage(core.Query{Skip: 10}); got != " ORDER BY date DESC, id DESC OFFSET 10" {
		t.Fatalf("order = %q", got)
	}
}

// TestStoreIntegration runs against a live database when POSTGRES_TEST_URL is set.
func TestStoreIntegration(t *testing.T) {
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	ctx := context.Background()
	s, err := New(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	user := "it-" + uuid.NewString()
	date := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	out := core.Transaction{
		UserID: user, Type: core.TransferOut, Amount: decimal.RequireFromString("40.25"),
		Category: core.TransferCategory, Division: core.Personal, Account: core.Bank,
		Description: "move", Date: date, TransferID: "TRF-" + uuid.NewString(),
	}
	in := out
	in.Type, in.Account = core.TransferIn, core.Savings

	legs, err := s.CreateTransfer(ctx, out, in)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, user, legs[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Amount.Equal(out.Amount) || got.TransferID != out.TransferID {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	n, err := s.Count(ctx, core.Query{UserID: user, TransfersOnly: true})
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v", n, err)
	}

	for _, leg := range legs {
		if err := s.Delete(ctx, user, leg.ID); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Delete(ctx, user, legs[0].ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}
