package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"moneymanager/internal/amqp"
	"moneymanager/internal/cache"
	"moneymanager/internal/core"
	"moneymanager/internal/log"
	"moneymanager/internal/report"
	"moneymanager/internal/storage"
)

// EventPublisher announces successful writes to other processes.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// TransactionService orchestrates transaction writes and reports across the
// store, the summary cache and the event publisher.
type TransactionService struct {
	store      storage.TransactionStore
	aggregator *report.Aggregator
	publisher  EventPublisher
	summaries  cache.SummaryCache
	now        func() time.Time
	logger     *log.Logger
	events     *log.StructuredLogger
}

type Option func(*TransactionService)

func WithPublisher(p EventPublisher) Option {
	return func(s *TransactionService) { s.publisher = p }
}

func WithSummaryCache(c cache.SummaryCache) Option {
	return func(s *TransactionService) { s.summaries = c }
}

// WithClock replaces time.Now for period resolution, the edit window and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TransactionService) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *TransactionService) { s.logger = l }
}

func NewTransactionService(store storage.TransactionStore, opts ...Option) *TransactionService {
	s := &TransactionService{
		store:      store,
		aggregator: report.NewAggregator(store),
		summaries:  cache.NopSummaryCache{},
		now:        time.Now,
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentTransaction)
	s.events = log.NewStructuredLogger(s.logger)
	return s
}

// NewTransaction is the caller supplied part of an income or expense record.
type NewTransaction struct {
	Type        core.TxType
	Amount      decimal.Decimal
	Category    string
	Division    core.Division
	Account     core.Account
	Description string
	Date        time.Time
}

// Create validates and stores a single income or expense. Transfer legs can
// only be written in pairs through Transfer.
func (s *TransactionService) Create(ctx context.Context, userID string, in NewTransaction) (core.Transaction, error) {
	if in.Type.IsTransfer() {
		return core.Transaction{}, fmt.Errorf("%w: %s records are created through transfers", core.ErrInvalidType, in.Type)
	}
	if !in.Amount.IsPositive() {
		return core.Transaction{}, core.ErrInvalidAmount
	}

	tx := core.Transaction{
		UserID:      userID,
		Type:        in.Type,
		Amount:      in.Amount,
		Category:    strings.TrimSpace(in.Category),
		Division:    in.Division,
		Account:     in.Account,
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.Create(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.afterWrite(ctx, amqp.OpCreated, log.OpCreate, userID, created)
	return created, nil
}

type TransferRequest struct {
	FromAccount core.Account
	ToAccount   core.Account
	Amount      decimal.Decimal
	Description string
	Date        time.Time
}

// Transfer moves Amount between two of the user's accounts by writing a
// transfer-out and a transfer-in sharing a fresh transfer id. Both legs are
// written or neither is.
func (s *TransactionService) Transfer(ctx context.Context, userID string, req TransferRequest) ([]core.Transaction, error) {
	desc := strings.TrimSpace(req.Description)
	if req.FromAccount == "" || req.ToAccount == "" || desc == "" || req.Date.IsZero() {
		return nil, fmt.Errorf("%w: fromAccount, toAccount, amount, description and date are required", core.ErrMissingField)
	}
	if !req.Amount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}
	if req.FromAccount == req.ToAccount {
		return nil, core.ErrSameAccount
	}

	transferID := "TRF-" + uuid.NewString()
	leg := func(typ core.TxType, account core.Account) core.Transaction {
		return core.Transaction{
			UserID:      userID,
			Type:        typ,
			Amount:      req.Amount,
			Category:    core.TransferCategory,
			Division:    core.Personal,
			Account:     account,
			Description: desc,
			Date:        req.Date,
			TransferID:  transferID,
		}
	}
	out, in := leg(core.TransferOut, req.FromAccount), leg(core.TransferIn, req.ToAccount)
	for _, tx := range []core.Transaction{out, in} {
		if err := tx.Validate(); err != nil {
			return nil, err
		}
	}

	legs, err := s.store.CreateTransfer(ctx, out, in)
	if err != nil {
		s.events.LogError(ctx, "Transfer write failed", err, log.ComponentTransaction, log.OpTransfer,
			log.NewFields().WithUser(userID).WithTransfer(transferID))
		return nil, fmt.Errorf("create transfer: %w", err)
	}
	s.afterWrite(ctx, amqp.OpTransferred, log.OpTransfer, userID, legs...)
	return legs, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	return s.store.Get(ctx, userID, id)
}

// ListParams narrows List. A nil Period lists across all dates.
type ListParams struct {
	Period  *report.PeriodParams
	Filters core.Filters
	Sort    core.SortOrder
	Limit   int
}

func (s *TransactionService) List(ctx context.Context, userID string, p ListParams) ([]core.Transaction, error) {
	q := core.Query{
		UserID:  userID,
		Filters: p.Filters,
		Sort:    p.Sort,
		Limit:   p.Limit,
	}
	if p.Period != nil {
		rng, err := report.Resolve(*p.Period, s.now())
		if err != nil {
			return nil, err
		}
		q.Range = &rng
	}

	txs, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// History returns one page of the user's transactions, newest first. A page
// below 1 reads as 1 and a non-positive limit as DefaultHistoryLimit.
func (s *TransactionService) History(ctx context.Context, userID string, page, limit int) (core.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = core.DefaultHistoryLimit
	}

	var (
		total int
		txs   []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, core.Query{UserID: userID})
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.store.Find(gctx, core.Query{
			UserID: userID,
			Sort:   core.DateDesc,
			Limit:  limit,
			Skip:   (page - 1) * limit,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Page{}, fmt.Errorf("load history: %w", err)
	}
	return core.NewPage(txs, total, page, limit), nil
}

// Patch holds the fields an update may change. Nil fields are left as they are.
type Patch struct {
	Type        *core.TxType
	Amount      *decimal.Decimal
	Category    *string
	Division    *core.Division
	Account     *core.Account
	Description *string
	Date        *time.Time
}

// Update applies patch to the user's record id. The checks run in order:
// existence, edit window, then validation of the patched record.
func (s *TransactionService) Update(ctx context.Context, userID, id string, patch Patch) (core.Transaction, error) {
	cur, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if !cur.EditableAt(s.now()) {
		return core.Transaction{}, core.ErrEditWindowExpired
	}

	next, err := applyPatch(cur, patch)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := next.Validate(); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.Update(ctx, next)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.afterWrite(ctx, amqp.OpUpdated, log.OpUpdate, userID, updated)
	return updated, nil
}

func applyPatch(tx core.Transaction, p Patch) (core.Transaction, error) {
	if p.Type != nil && *p.Type != tx.Type {
		if tx.TransferID != "" {
			return core.Transaction{}, core.ErrTransferTypeChange
		}
		if p.Type.IsTransfer() {
			return core.Transaction{}, fmt.Errorf("%w: %s records are created through transfers", core.ErrInvalidType, *p.Type)
		}
		tx.Type = *p.Type
	}
	if p.Amount != nil {
		if !p.Amount.IsPositive() {
			return core.Transaction{}, core.ErrInvalidAmount
		}
		tx.Amount = *p.Amount
	}
	if p.Category != nil {
		tx.Category = strings.TrimSpace(*p.Category)
	}
	if p.Division != nil {
		tx.Division = *p.Division
	}
	if p.Account != nil {
		tx.Account = *p.Account
	}
	if p.Description != nil {
		tx.Description = strings.TrimSpace(*p.Description)
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	return tx, nil
}

// Delete removes the user's record id. Deletion is not bound by the edit window.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	cur, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.afterWrite(ctx, amqp.OpDeleted, log.OpDelete, userID, cur)
	return nil
}

// Summary resolves p against the service clock and folds the user's matching
// transactions. The resolved range is returned alongside the summary.
func (s *TransactionService) Summary(ctx context.Context, userID string, p report.PeriodParams, f core.Filters) (core.Summary, core.DateRange, error) {
	rng, err := report.Resolve(p, s.now())
	if err != nil {
		return core.Summary{}, core.DateRange{}, err
	}

	key := cache.SummaryKey{Range: rng, Filters: f}
	sum, gen, ok := s.summaries.Get(ctx, userID, key)
	if ok {
		return sum, rng, nil
	}

	sum, err = s.aggregator.Summarize(ctx, userID, rng, f)
	if err != nil {
		s.events.LogError(ctx, "Summary failed", err, log.ComponentReport, log.OpSummarize,
			log.NewFields().WithUser(userID).WithRange(string(p.Period), rng.Start.Format(time.RFC3339), rng.End.Format(time.RFC3339)))
		return core.Summary{}, core.DateRange{}, err
	}
	s.summaries.Set(ctx, userID, key, gen, sum)
	return sum, rng, nil
}

func (s *TransactionService) afterWrite(ctx context.Context, op amqp.EventOp, logOp, userID string, txs ...core.Transaction) {
	s.summaries.Invalidate(ctx, userID)

	for _, tx := range txs {
		s.events.LogTransactionWritten(ctx, logOp, userID, tx.ID, string(tx.Type), tx.Amount.String(),
			string(tx.Account), tx.Category, string(tx.Division), tx.TransferID)
	}

	if s.publisher == nil {
		return
	}
	ev := amqp.NewTransactionEvent(op, userID, s.now(), txs...)
	if err := s.publisher.PublishTransactionEvent(ctx, ev); err != nil {
		// the write already succeeded; the event is best effort
		s.logger.WarnContext(ctx, "Failed to publish transaction event",
			log.FieldUserID, userID,
			log.FieldOperation, logOp,
			log.FieldError, err.Error())
	}
}
