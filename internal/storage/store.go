// Package storage defines the transaction store port and helpers shared by
// its backends (memory, sqlite, postgres, mongo).
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"moneymanager/internal/core"
)

// TransactionStore persists transactions. Every read and write is scoped by
// user; a record owned by someone else is reported as core.ErrNotFound.
type TransactionStore interface {
	Create(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	// CreateTransfer writes both legs of a transfer or neither.
	CreateTransfer(ctx context.Context, out, in core.Transaction) ([]core.Transaction, error)
	Get(ctx context.Context, userID, id string) (core.Transaction, error)
	Find(ctx context.Context, q core.Query) ([]core.Transaction, error)
	Count(ctx context.Context, q core.Query) (int, error)
	// Update replaces the mutable fields of the record identified by tx.UserID and tx.ID.
	Update(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	Delete(ctx context.Context, userID, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// ErrIncompleteTransfer is returned when a transfer could not be written as a
// pair. Backends without multi-document atomicity wrap it together with the
// outcome of their compensating delete.
var ErrIncompleteTransfer = errors.New("incomplete transfer write")

// Stamp fills the store-assigned fields of tx: a fresh ID when empty, and
// CreatedAt / UpdatedAt when zero.
func Stamp(tx core.Transaction, now time.Time) core.Transaction {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = tx.CreatedAt
	}
	return tx
}

// CheckTransferPair validates that out and in form a well-shaped pair before
// anything is written.
func CheckTransferPair(out, in core.Transaction) error {
	if out.Type != core.TransferOut || in.Type != core.TransferIn {
		return fmt.Errorf("%w: legs must be transfer-out then transfer-in", core.ErrInvalidType)
	}
	if out.TransferID == "" || out.TransferID != in.TransferID {
		return fmt.Errorf("%w: legs must share a transfer id", core.ErrMissingField)
	}
	if out.UserID != in.UserID {
		return fmt.Errorf("%w: legs must belong to the same user", core.ErrMissingField)
	}
	if out.Account == in.Account {
		return core.ErrSameAccount
	}
	return nil
}

// Window returns the slice bounds [lo, hi) of a page given skip and limit.
// A non-positive limit means no limit.
func Window(n, skip, limit int) (lo, hi int) {
	if skip < 0 {
		skip = 0
	}
	if skip > n {
		skip = n
	}
	hi = n
	if limit > 0 && skip+limit < n {
		hi = skip + limit
	}
	return skip, hi
}
