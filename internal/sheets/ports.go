// Package sheets defines the ledger mirror port. Every transaction event is
// appended as one row per record so the spreadsheet is an audit log of writes.
package sheets

import (
	"context"
	"time"

	"moneymanager/internal/amqp"
)

// LedgerEntry is one row of the mirrored ledger.
type LedgerEntry struct {
	RecordedAt    time.Time
	Op            string
	UserID        string
	TransactionID string
	TransferID    string
	Type          string
	Date          time.Time
	Account       string
	Division      string
	Category      string
	Description   string
	Amount        string
}

// LedgerWriter appends entries to the mirror.
type LedgerWriter interface {
	AppendEntries(ctx context.Context, entries []LedgerEntry) error
}

// EntriesFromEvent flattens ev into one entry per carried record.
func EntriesFromEvent(ev *amqp.TransactionEvent) []LedgerEntry {
	entries := make([]LedgerEntry, 0, len(ev.Transactions))
	for _, tx := range ev.Transactions {
		entries = append(entries, LedgerEntry{
			RecordedAt:    ev.Timestamp,
			Op:            string(ev.Op),
			UserID:        ev.UserID,
			TransactionID: tx.ID,
			TransferID:    tx.TransferID,
			Type:          tx.Type,
			Date:          tx.Date,
			Account:       tx.Account,
			Division:      tx.Division,
			Category:      tx.Category,
			Description:   tx.Description,
			Amount:        tx.Amount,
		})
	}
	return entries
}
