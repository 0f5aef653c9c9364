package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income      TxType = "income"
	Expense     TxType = "expense"
	TransferIn  TxType = "transfer-in"
	TransferOut TxType = "transfer-out"
)

const (
	Personal Division = "personal"
	Office   Division = "office"
)

const (
	Cash       Account = "cash"
	Bank       Account = "bank"
	CreditCard Account = "credit-card"
	Savings    Account = "savings"
)

// EditWindow is how long after creation a transaction may still be modified.
const EditWindow = 12 * time.Hour

// TransferCategory is the category stamped on both legs of a transfer.
const TransferCategory = "transfer"

const maxDescriptionLen = 200

type (
	TxType   string
	Division string
	Account  string

	// Transaction is a single ledger record owned by one user.
	Transaction struct {
		ID          string
		UserID      string
		Type        TxType
		Amount      decimal.Decimal
		Category    string
		Division    Division
		Account     Account
		Description string
		Date        time.Time // effective instant, user supplied
		CreatedAt   time.Time
		UpdatedAt   time.Time
		TransferID  string // empty unless this is a transfer leg
	}
)

var (
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidDivision    = errors.New("invalid division")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrMissingDate        = errors.New("missing date")
	ErrMissingField       = errors.New("missing required field")
	ErrSameAccount        = errors.New("cannot transfer to the same account")
	ErrTransferTypeChange = errors.New("cannot change the type of a transfer leg")

	ErrNotFound          = errors.New("transaction not found")
	ErrEditWindowExpired = errors.New("cannot edit transaction after 12 hours")
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrMalformedRecord   = errors.New("malformed transaction record")
)

var validationErrors = []error{
	ErrInvalidType,
	ErrInvalidAmount,
	ErrEmptyDescription,
	ErrDescriptionTooLong,
	ErrEmptyCategory,
	ErrInvalidDivision,
	ErrInvalidAccount,
	ErrMissingDate,
	ErrMissingField,
	ErrSameAccount,
	ErrTransferTypeChange,
}

// IsValidation reports whether err belongs to the input validation family.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Valid reports whether t is one of the four known transaction types.
func (t TxType) Valid() bool {
	switch t {
	case Income, Expense, TransferIn, TransferOut:
		return true
	}
	return false
}

// EffectiveSign is +1 for money entering an account, -1 for money leaving it
// and 0 for unknown types.
func (t TxType) EffectiveSign() int {
	switch t {
	case Income, TransferIn:
		return 1
	case Expense, TransferOut:
		return -1
	}
	return 0
}

// IsTransfer reports whether t is either leg of a transfer.
func (t TxType) IsTransfer() bool {
	return t == TransferIn || t == TransferOut
}

func (d Division) Valid() bool {
	return d == Personal || d == Office
}

func (a Account) Valid() bool {
	switch a {
	case Cash, Bank, CreditCard, Savings:
		return true
	}
	return false
}

// Accounts returns the known accounts in display order.
func Accounts() []Account {
	return []Account{Cash, Bank, CreditCard, Savings}
}

// Divisions returns the known divisions in display order.
func Divisions() []Division {
	return []Division{Personal, Office}
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !t.Division.Valid() {
		return ErrInvalidDivision
	}
	if !t.Account.Valid() {
		return ErrInvalidAccount
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// EditableAt reports whether the transaction is still inside its edit window at now.
func (t Transaction) EditableAt(now time.Time) bool {
	return now.Sub(t.CreatedAt) <= EditWindow
}
