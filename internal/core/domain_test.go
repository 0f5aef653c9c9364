package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validTransaction() Transaction {
	return Transaction{
		UserID:      "u1",
		Type:        Expense,
		Amount:      decimal.RequireFromString("12.50"),
		Category:    "food",
		Division:    Personal,
		Account:     Cash,
		Description: "lunch",
		Date:        time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"unknown type", func(tx *Transaction) { tx.Type = "refund" }, ErrInvalidType},
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-1) }, ErrInvalidAmount},
		{"blank category", func(tx *Transaction) { tx.Category = "  " }, ErrEmptyCategory},
		{"unknown division", func(tx *Transaction) { tx.Division = "family" }, ErrInvalidDivision},
		{"unknown account", func(tx *Transaction) { tx.Account = "wallet" }, ErrInvalidAccount},
		{"blank description", func(tx *Transaction) { tx.Description = "\t" }, ErrEmptyDescription},
		{"long description", func(tx *Transaction) { tx.Description = strings.Repeat("x", 201) }, ErrDescriptionTooLong},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }, ErrMissingDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTransaction()
			tc.mutate(&tx)
			err := tx.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if !IsValidation(err) {
				t.Fatalf("%v should be classified as validation", err)
			}
		})
	}
}

func TestZeroAmountIsStorable(t *testing.T) {
	tx := validTransaction()
	tx.Amount = decimal.Zero
	if err := tx.Validate(); err != nil {
		t.Fatalf("zero amount should satisfy the stored invariant, got %v", err)
	}
}

func TestEffectiveSign(t *testing.T) {
	cases := map[TxType]int{
		Income:      1,
		TransferIn:  1,
		Expense:     -1,
		TransferOut: -1,
		"bogus":     0,
	}
	for typ, want := range cases {
		if got := typ.EffectiveSign(); got != want {
			t.Errorf("%s.EffectiveSign() = %d, want %d", typ, got, want)
		}
	}
}

func TestEditableAt(t *testing.T) {
	created := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	tx := Transaction{CreatedAt: created}

	if !tx.EditableAt(created.Add(11*time.Hour + 59*time.Minute)) {
		t.Error("edit at +11h59m should be accepted")
	}
	if !tx.EditableAt(created.Add(12 * time.Hour)) {
		t.Error("edit at exactly +12h should be accepted")
	}
	if tx.EditableAt(created.Add(12*time.Hour + time.Second)) {
		t.Error("edit at +12h1s should be rejected")
	}
}

func TestIsValidationExcludesOtherErrors(t *testing.T) {
	for _, err := range []error{ErrNotFound, ErrEditWindowExpired, ErrInvalidPeriod, errors.New("boom")} {
		if IsValidation(err) {
			t.Errorf("%v must not be a validation error", err)
		}
	}
}
