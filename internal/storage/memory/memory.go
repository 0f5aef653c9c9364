// Package memory is an in-process transaction store used for development
// and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"moneymanager/internal/core"
	"moneymanager/internal/storage"
)

var _ storage.TransactionStore = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	items map[string]core.Transaction
	now   func() time.Time
}

type Option func(*Store)

// WithClock overrides the clock used to stamp CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		items: make(map[string]core.Transaction),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Create(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx = storage.Stamp(tx, s.now())
	s.items[tx.ID] = tx
	return tx, nil
}

// CreateTransfer stores both legs inside one critical section.
func (s *Store) CreateTransfer(_ context.Context, out, in core.Transaction) ([]core.Transaction, error) {
	if err := storage.CheckTransferPair(out, in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	out = storage.Stamp(out, now)
	in = storage.Stamp(in, now)
	s.items[out.ID] = out
	s.items[in.ID] = in
	return []core.Transaction{out, in}, nil
}

func (s *Store) Get(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.items[id]
	if !ok || tx.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (s *Store) Find(_ context.Context, q core.Query) ([]core.Transaction, error) {
	s.mu.Lock()
	matched := s.match(q)
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.Date.Equal(b.Date) {
			if q.Sort == core.DateAsc {
				return a.Date.Before(b.Date)
			}
			return a.Date.After(b.Date)
		}
		return a.ID < b.ID
	})

	lo, hi := storage.Window(len(matched), q.Skip, q.Limit)
	return append([]core.Transaction(nil), matched[lo:hi]...), nil
}

func (s *Store) Count(_ context.Context, q core.Query) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.match(q)), nil
}

func (s *Store) Update(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[tx.ID]
	if !ok || cur.UserID != tx.UserID {
		return core.Transaction{}, core.ErrNotFound
	}
	cur.Type = tx.Type
	cur.Amount = tx.Amount
	cur.Category = tx.Category
	cur.Division = tx.Division
	cur.Account = tx.Account
	cur.Description = tx.Description
	cur.Date = tx.Date
	cur.UpdatedAt = s.now()
	s.items[cur.ID] = cur
	return cur, nil
}

func (s *Store) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.items[id]
	if !ok || tx.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// match must be called with s.mu held.
func (s *Store) match(q core.Query) []core.Transaction {
	var out []core.Transaction
	for _, tx := range s.items {
		if q.Matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}
