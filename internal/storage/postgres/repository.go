// Package postgres stores transactions in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"moneymanager/internal/core"
	"moneymanager/internal/storage"
)

var _ storage.TransactionStore = (*Store)(nil)

var dialect = storage.Dialect{
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	DateColumn:  "date",
	DateValue:   func(t time.Time) any { return t },
}

const selectColumns = `SELECT id, user_id, type, amount::text, category, division, account,
	description, date, created_at, updated_at, transfer_id FROM transactions`

const insertSQL = `INSERT INTO transactions
	(id, user_id, type, amount, category, division, account, description,
	 date, created_at, updated_at, transfer_id)
	VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11, $12)`

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New migrates the database at databaseURL and opens a connection pool to it.
func New(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func insertArgs(tx core.Transaction) []any {
	return []any{
		tx.ID, tx.UserID, string(tx.Type), tx.Amount.String(), tx.Category,
		string(tx.Division), string(tx.Account), tx.Description,
		tx.Date, tx.CreatedAt, tx.UpdatedAt, storage.NullableTransferID(tx.TransferID),
	}
}

func (s *Store) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx = storage.Stamp(tx, s.now())
	if _, err := s.pool.Exec(ctx, insertSQL, insertArgs(tx)...); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

// CreateTransfer writes both legs inside one database transaction.
func (s *Store) CreateTransfer(ctx context.Context, out, in core.Transaction) ([]core.Transaction, error) {
	if err := storage.CheckTransferPair(out, in); err != nil {
		return nil, err
	}
	now := s.now()
	out = storage.Stamp(out, now)
	in = storage.Stamp(in, now)

	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	for _, leg := range []core.Transaction{out, in} {
		if _, err := dbTx.Exec(ctx, insertSQL, insertArgs(leg)...); err != nil {
			return nil, fmt.Errorf("%w: insert %s leg: %v", storage.ErrIncompleteTransfer, leg.Type, err)
		}
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", storage.ErrIncompleteTransfer, err)
	}
	return []core.Transaction{out, in}, nil
}

func (s *Store) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	tx, err := scan(s.pool.QueryRow(ctx, selectColumns+` WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

func (s *Store) Find(ctx context.Context, q core.Query) ([]core.Transaction, error) {
	where, args := dialect.Where(q)
	rows, err := s.pool.Query(ctx, selectColumns+" WHERE "+where+dialect.OrderAndPage(q), args...)
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
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions WHERE "+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (s *Store) Update(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	row := s.pool.QueryRow(ctx, `UPDATE transactions SET
		type = $1, amount = $2::numeric, category = $3, division = $4, account = $5,
		description = $6, date = $7, updated_at = $8
		WHERE id = $9 AND user_id = $10
		RETURNING id, user_id, type, amount::text, category, division, account,
			description, date, created_at, updated_at, transfer_id`,
		string(tx.Type), tx.Amount.String(), tx.Category, string(tx.Division),
		string(tx.Account), tx.Description, tx.Date, s.now(), tx.ID, tx.UserID)
	updated, err := scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", tx.ID, err)
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scan(r pgx.Row) (core.Transaction, error) {
	var (
		tx                             core.Transaction
		typ, amount, division, account string
		transferID                     *string
	)
	err := r.Scan(&tx.ID, &tx.UserID, &typ, &amount, &tx.Category, &division, &account,
		&tx.Description, &tx.Date, &tx.CreatedAt, &tx.UpdatedAt, &transferID)
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
	if transferID != nil {
		tx.TransferID = *transferID
	}
	return tx, nil
}
