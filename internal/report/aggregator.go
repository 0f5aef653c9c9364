package report

import (
	"context"
	"fmt"

	"moneymanager/internal/core"
)

// TransactionFinder is the read side of the transaction store the aggregator needs.
type TransactionFinder interface {
	Find(ctx context.Context, q core.Query) ([]core.Transaction, error)
}

// Aggregator folds a user's transactions over a date range into a Summary.
type Aggregator struct {
	finder TransactionFinder
}

func NewAggregator(finder TransactionFinder) *Aggregator {
	return &Aggregator{finder: finder}
}

// Summarize retrieves every transaction of userID inside rng that matches
// filters and folds them. Filtering is delegated entirely to the finder.
func (a *Aggregator) Summarize(ctx context.Context, userID string, rng core.DateRange, filters core.Filters) (core.Summary, error) {
	txs, err := a.finder.Find(ctx, core.Query{
		UserID:  userID,
		Range:   &rng,
		Filters: filters,
	})
	if err != nil {
		return core.Summary{}, fmt.Errorf("find transactions: %w", err)
	}
	return Fold(txs)
}

// Fold computes the summary of txs. The result does not depend on the order
// of txs. A record with an unknown type, account or division aborts the fold
// with ErrMalformedRecord; no partial summary is returned.
func Fold(txs []core.Transaction) (core.Summary, error) {
	s := core.NewSummary()

	for _, tx := range txs {
		if !tx.Account.Valid() {
			return core.Summary{}, fmt.Errorf("%w: %s has account %q", core.ErrMalformedRecord, tx.ID, tx.Account)
		}
		if !tx.Division.Valid() {
			return core.Summary{}, fmt.Errorf("%w: %s has division %q", core.ErrMalformedRecord, tx.ID, tx.Division)
		}

		switch tx.Type.EffectiveSign() {
		case 1:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			s.AccountBalances.Add(string(tx.Account), tx.Amount)
		case -1:
			s.TotalExpense = s.TotalExpense.Add(tx.Amount)
			s.AccountBalances.Sub(string(tx.Account), tx.Amount)
		default:
			return core.Summary{}, fmt.Errorf("%w: %s has type %q", core.ErrMalformedRecord, tx.ID, tx.Type)
		}

		// gross, regardless of direction
		s.CategoryBreakdown.Add(tx.Category, tx.Amount)
		s.DivisionBreakdown.Add(string(tx.Division), tx.Amount)
	}

	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s, nil
}
