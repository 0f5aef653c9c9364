package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"moneymanager/internal/core"
	"moneymanager/internal/storage"
)

type IncompleteTransfer struct {
	TransferID  string        `json:"transferId"`
	UserID      string        `json:"userId"`
	PresentLegs []string      `json:"presentLegs"`
	Missing     []core.TxType `json:"missing"`
	Duplicated  []core.TxType `json:"duplicated,omitempty"`
}

type MismatchedTransfer struct {
	TransferID string          `json:"transferId"`
	UserID     string          `json:"userId"`
	OutAmount  decimal.Decimal `json:"outAmount"`
	InAmount   decimal.Decimal `json:"inAmount"`
}

// ReconcileReport groups transfer legs by transfer id. Complete counts
// well-formed pairs with equal amounts; every other group shows up in
// Incomplete or Mismatched.
type ReconcileReport struct {
	TotalTransfers int                  `json:"totalTransfers"`
	Complete       int                  `json:"complete"`
	Incomplete     []IncompleteTransfer `json:"incomplete"`
	Mismatched     []MismatchedTransfer `json:"mismatched"`
}

// Healthy reports whether every transfer is a complete, balanced pair.
func (r ReconcileReport) Healthy() bool {
	return len(r.Incomplete) == 0 && len(r.Mismatched) == 0
}

// TransferReconciler finds transfers whose two legs are not both present or
// do not agree on the amount.
type TransferReconciler struct {
	store storage.TransactionStore
}

func NewTransferReconciler(store storage.TransactionStore) *TransferReconciler {
	return &TransferReconciler{store: store}
}

// Reconcile checks the transfers of userID. An empty userID scans every user
// and is meant for maintenance jobs only.
func (r *TransferReconciler) Reconcile(ctx context.Context, userID string) (ReconcileReport, error) {
	legs, err := r.store.Find(ctx, core.Query{
		UserID:        userID,
		TransfersOnly: true,
		Sort:          core.DateAsc,
	})
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("load transfer legs: %w", err)
	}
	return ReconcileLegs(legs), nil
}

// ReconcileLegs is the pure grouping step of Reconcile.
func ReconcileLegs(legs []core.Transaction) ReconcileReport {
	type group struct {
		userID string
		outs   []core.Transaction
		ins    []core.Transaction
		ids    []string
	}
	groups := map[string]*group{}
	for _, tx := range legs {
		if tx.TransferID == "" {
			continue
		}
		// the same id under two users is two distinct transfers
		key := tx.UserID + "\x00" + tx.TransferID
		g, ok := groups[key]
		if !ok {
			g = &group{userID: tx.UserID}
			groups[key] = g
		}
		g.ids = append(g.ids, tx.ID)
		switch tx.Type {
		case core.TransferOut:
			g.outs = append(g.outs, tx)
		case core.TransferIn:
			g.ins = append(g.ins, tx)
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rep := ReconcileReport{
		TotalTransfers: len(groups),
		Incomplete:     []IncompleteTransfer{},
		Mismatched:     []MismatchedTransfer{},
	}
	for _, k := range keys {
		g := groups[k]
		transferID := k[strings.IndexByte(k, 0)+1:]

		if len(g.outs) != 1 || len(g.ins) != 1 {
			inc := IncompleteTransfer{
				TransferID:  transferID,
				UserID:      g.userID,
				PresentLegs: g.ids,
				Missing:     []core.TxType{},
			}
			for _, side := range []struct {
				typ core.TxType
				n   int
			}{{core.TransferOut, len(g.outs)}, {core.TransferIn, len(g.ins)}} {
				switch {
				case side.n == 0:
					inc.Missing = append(inc.Missing, side.typ)
				case side.n > 1:
					inc.Duplicated = append(inc.Duplicated, side.typ)
				}
			}
			rep.Incomplete = append(rep.Incomplete, inc)
			continue
		}

		out, in := g.outs[0], g.ins[0]
		if !out.Amount.Equal(in.Amount) {
			rep.Mismatched = append(rep.Mismatched, MismatchedTransfer{
				TransferID: transferID,
				UserID:     g.userID,
				OutAmount:  out.Amount,
				InAmount:   in.Amount,
			})
			continue
		}
		rep.Complete++
	}
	return rep
}
