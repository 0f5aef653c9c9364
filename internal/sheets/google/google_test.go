package google

import (
	"context"
	"os"
	"testing"
	"time"

	ports "moneymanager/internal/sheets"
)

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Ledger", 2025, "2025 Ledger"},
		{"  Ledger  ", 2024, "2024 Ledger"},
		{"2023 Ledger", 2025, "2023 Ledger"},
		{"1800 Ledger", 2025, "2025 1800 Ledger"},
		{"", 2025, ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestGroupByTab(t *testing.T) {
	entry := func(id string, year int) ports.LedgerEntry {
		return ports.LedgerEntry{
			TransactionID: id,
			Date:          time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC),
			RecordedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
			Amount:        "1.5",
		}
	}
	batches := groupByTab([]ports.LedgerEntry{entry("a", 2025), entry("b", 2024), entry("c", 2025)}, "Ledger")
	if len(batches) != 2 {
		t.Fatalf("got %d batches", len(batches))
	}
	if batches[0].tab != "2024 Ledger" || len(batches[0].rows) != 1 {
		t.Errorf("first batch = %+v", batches[0])
	}
	if batches[1].tab != "2025 Ledger" || len(batches[1].rows) != 2 || batches[1].rows[1][3] != "c" {
		t.Errorf("second batch = %+v", batches[1])
	}
}

func TestEntryRowMatchesHeader(t *testing.T) {
	row := entryRow(ports.LedgerEntry{
		RecordedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Date:       time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC),
		Amount:     "10",
	})
	if len(row) != len(Header) {
		t.Fatalf("row has %d cells, header %d", len(row), len(Header))
	}
	if row[0] != "2025-01-02T03:04:05Z" || row[6] != "2025-01-01" {
		t.Errorf("row = %v", row)
	}
}

func TestCredentialsLoad(t *testing.T) {
	if _, err := (Credentials{}).load(); err == nil {
		t.Error("empty credentials must fail")
	}
	data, err := Credentials{JSON: `{"type":"service_account"}`, File: "/nope"}.load()
	if err != nil || string(data) != `{"type":"service_account"}` {
		t.Errorf("inline JSON must win: %q, %v", data, err)
	}
	if _, err := (Credentials{File: "/definitely/missing.json"}).load(); err == nil {
		t.Error("missing file must fail")
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), " ", "Ledger", Credentials{JSON: "{}"}, nil); err == nil {
		t.Fatal("expected error without spreadsheet id")
	}
}

// TestAppendIntegration writes to a real sheet when SHEETS_TEST_SPREADSHEET_ID is set.
func TestAppendIntegration(t *testing.T) {
	id := os.Getenv("SHEETS_TEST_SPREADSHEET_ID")
	if id == "" {
		t.Skip("SHEETS_TEST_SPREADSHEET_ID not set")
	}
	ctx := context.Background()
	c, err := New(ctx, id, "Ledger Test", CredentialsFromEnv(), nil)
	if err != nil {
		t.Fatal(err)
	}
	err = c.AppendEntries(ctx, []ports.LedgerEntry{{
		RecordedAt: time.Now(), Op: "created", UserID: "it", TransactionID: "it-1",
		Type: "expense", Date: time.Now(), Account: "cash", Division: "personal",
		Category: "test", Description: "integration", Amount: "0.01",
	}})
	if err != nil {
		t.Fatal(err)
	}
}
