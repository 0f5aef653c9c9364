package storage

import (
	"errors"
	"testing"
	"time"

	"moneymanager/internal/core"
)

func TestStamp(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	tx := Stamp(core.Transaction{}, now)
	if tx.ID == "" {
		t.Fatal("ID should be assigned")
	}
	if !tx.CreatedAt.Equal(now) || !tx.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps not set: %+v", tx)
	}

	created := now.Add(-time.Hour)
	kept := Stamp(core.Transaction{ID: "fixed", CreatedAt: created}, now)
	if kept.ID != "fixed" || !kept.CreatedAt.Equal(created) {
		t.Fatalf("existing fields overwritten: %+v", kept)
	}
}

func TestCheckTransferPair(t *testing.T) {
	out := core.Transaction{UserID: "u", Type: core.TransferOut, Account: core.Bank, TransferID: "TRF-1"}
	in := core.Transaction{UserID: "u", Type: core.TransferIn, Account: core.Savings, TransferID: "TRF-1"}
	if err := CheckTransferPair(out, in); err != nil {
		t.Fatalf("valid pair rejected: %v", err)
	}

	same := in
	same.Account = core.Bank
	if err := CheckTransferPair(out, same); !errors.Is(err, core.ErrSameAccount) {
		t.Fatalf("same account: got %v", err)
	}

	other := in
	other.TransferID = "TRF-2"
	if err := CheckTransferPair(out, other); err == nil {
		t.Fatal("mismatched transfer ids should be rejected")
	}

	if err := CheckTransferPair(in, out); !errors.Is(err, core.ErrInvalidType) {
		t.Fatalf("swapped legs: got %v", err)
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		n, skip, limit int
		lo, hi         int
	}{
		{10, 0, 0, 0, 10},
		{10, 0, 3, 0, 3},
		{10, 8, 5, 8, 10},
		{10, 12, 5, 10, 10},
		{10, -1, 2, 0, 2},
	}
	for _, tt := range tests {
		lo, hi := Window(tt.n, tt.skip, tt.limit)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("Window(%d,%d,%d) = [%d,%d), want [%d,%d)", tt.n, tt.skip, tt.limit, lo, hi, tt.lo, tt.hi)
		}
	}
}
