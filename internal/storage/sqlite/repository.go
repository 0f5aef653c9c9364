// Package sqlite stores transactions in a local SQLite file through the pure
// Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"moneymanager/internal/core"
	"moneymanager/internal/storage"

	_ "modernc.org/sqlite"
)

var _ storage.TransactionStore = (*Store)(nil)

var dialect = storage.Dialect{
	Placeholder: func(int) string { return "?" },
	DateColumn:  "date_ms",
	DateValue:   func(t time.Time) any { return t.UnixMilli() },

	UnboundedLimit: "-1",
}

const selectColumns = `SELECT id, user_id, type, amount, category, division, account,
	description, date_ms, created_ms, updated_ms, transfer_id FROM transactions`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New opens (creating if needed) the database at dbPath and migrates it.
func New(dbPath string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, db execer, tx core.Transaction) error {
	_, err := db.ExecContext(ctx, `INSERT INTO transactions
		(id, user_id, type, amount, category, division, account, description,
		 date_ms, created_ms, updated_ms, transfer_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, string(tx.Type), tx.Amount.String(), tx.Category,
		string(tx.Division), string(tx.Account), tx.Description,
		tx.Date.UnixMilli(), tx.CreatedAt.UnixMilli(), tx.UpdatedAt.UnixMilli(),
		storage.NullableTransferID(tx.TransferID))
	return err
}

func (s *Store) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx = storage.Stamp(tx, s.now())
	if err := insert(ctx, s.db, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	slog.DebugContext(ctx, "Transaction saved to SQLite", "id", tx.ID, "type", tx.Type)
	return tx, nil
}

// CreateTransfer writes both legs inside one SQL transaction.
func (s *Store) CreateTransfer(ctx context.Context, out, in core.Transaction) ([]core.Transaction, error) {
	if err := storage.CheckTransferPair(out, in); err != nil {
		return nil, err
	}
	now := s.now()
	out = storage.Stamp(out, now)
	in = storage.Stamp(in, now)

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, leg := range []core.Transaction{out, in} {
		if err := insert(ctx, sqlTx, leg); err != nil {
			return nil, fmt.Errorf("%w: insert %s leg: %v", storage.ErrIncompleteTransfer, leg.Type, err)
		}
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", storage.ErrIncompleteTransfer, err)
	}
	return []core.Transaction{out, in}, nil
}

func (s *Store) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ? AND user_id = ?`, id, userID)
	tx, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

func (s *Store) Find(ctx context.Context, q core.Query) ([]core.Transaction, error) {
	where, args := dialect.Where(q)
	rows, err := s.db.QueryContext(ctx, selectColumns+" WHERE "+where+dialect.OrderAndPage(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *Store) Count(ctx context.Context, q core.Query) (int, error) {
	where, args := dialect.Where(q)
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions WHERE "+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (s *Store) Update(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE transactions SET
		type = ?, amount = ?, category = ?, division = ?, account = ?,
		description = ?, date_ms = ?, updated_ms = ?
		WHERE id = ? AND user_id = ?`,
		string(tx.Type), tx.Amount.String(), tx.Category, string(tx.Division),
		string(tx.Account), tx.Description, tx.Date.UnixMilli(), s.now().UnixMilli(),
		tx.ID, tx.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", tx.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return s.Get(ctx, tx.UserID, tx.ID)
}

func (s *Store) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(r scanner) (core.Transaction, error) {
	var (
		tx                             core.Transaction
		typ, amount, division, account string
		dateMs, createdMs, updatedMs   int64
		transferID                     sql.NullString
	)
	err := r.Scan(&tx.ID, &tx.UserID, &typ, &amount, &tx.Category, &division, &account,
		&tx.Description, &dateMs, &createdMs, &updatedMs, &transferID)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %s has amount %q", core.ErrMalformedRecord, tx.ID, amount)
	}
	tx.Type = core.TxType(typ)
	tx.Division = core.Division(division)
	tx.Account = core.Account(account)
	tx.Date = time.UnixMilli(dateMs).UTC()
	tx.CreatedAt = time.UnixMilli(createdMs).UTC()
	tx.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	tx.TransferID = transferID.String
	return tx, nil
}
