// Package memory is an in-process LedgerWriter for development and tests.
package memory

import (
	"context"
	"sync"

	"moneymanager/internal/sheets"
)

var _ sheets.LedgerWriter = (*Ledger)(nil)

type Ledger struct {
	mu      sync.Mutex
	entries []sheets.LedgerEntry
	err     error
}

func New() *Ledger {
	return &Ledger{}
}

// FailWith makes every following append return err. Pass nil to recover.
func (l *Ledger) FailWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

func (l *Ledger) AppendEntries(_ context.Context, entries []sheets.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, entries...)
	return nil
}

// Entries returns a copy of everything appended so far.
func (l *Ledger) Entries() []sheets.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sheets.LedgerEntry(nil), l.entries...)
}
