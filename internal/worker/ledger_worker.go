// Package worker consumes transaction events off the queue and runs the
// periodic transfer reconciliation.
package worker

import (
	"context"
	"fmt"
	"time"

	"moneymanager/internal/amqp"
	"moneymanager/internal/log"
	"moneymanager/internal/services"
	"moneymanager/internal/sheets"
)

// LedgerWorker mirrors transaction events into the ledger and keeps an eye
// on transfer pairs.
type LedgerWorker struct {
	ledger     sheets.LedgerWriter
	reconciler *services.TransferReconciler
	logger     *log.Logger
}

func NewLedgerWorker(ledger sheets.LedgerWriter, reconciler *services.TransferReconciler, logger *log.Logger) *LedgerWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerWorker{
		ledger:     ledger,
		reconciler: reconciler,
		logger:     logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent appends one ledger row per record carried by ev. A returned
// error makes the consumer requeue the message.
func (w *LedgerWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	entries := sheets.EntriesFromEvent(ev)
	if len(entries) == 0 {
		w.logger.WarnContext(ctx, "Ignoring transaction event without records", "op", ev.Op, log.FieldUserID, ev.UserID)
		return nil
	}

	if err := w.ledger.AppendEntries(ctx, entries); err != nil {
		return fmt.Errorf("append ledger entries: %w", err)
	}

	w.logger.InfoContext(ctx, "Transaction event mirrored",
		"op", ev.Op,
		log.FieldUserID, ev.UserID,
		log.FieldCount, len(entries))
	return nil
}

// ReconcileOnce checks every user's transfers and logs each broken one.
func (w *LedgerWorker) ReconcileOnce(ctx context.Context) (services.ReconcileReport, error) {
	rep, err := w.reconciler.Reconcile(ctx, "")
	if err != nil {
		return services.ReconcileReport{}, err
	}

	for _, inc := range rep.Incomplete {
		w.logger.WarnContext(ctx, "Incomplete transfer",
			log.FieldTransferID, inc.TransferID,
			log.FieldUserID, inc.UserID,
			"present_legs", inc.PresentLegs,
			"missing", inc.Missing,
			"duplicated", inc.Duplicated)
	}
	for _, mm := range rep.Mismatched {
		w.logger.WarnContext(ctx, "Transfer legs disagree on amount",
			log.FieldTransferID, mm.TransferID,
			log.FieldUserID, mm.UserID,
			"out_amount", mm.OutAmount.String(),
			"in_amount", mm.InAmount.String())
	}
	w.logger.InfoContext(ctx, "Transfer reconciliation finished",
		"total", rep.TotalTransfers,
		"complete", rep.Complete,
		"incomplete", len(rep.Incomplete),
		"mismatched", len(rep.Mismatched))
	return rep, nil
}

// RunReconcileLoop reconciles once at startup and then every interval until
// ctx is done. Failed passes are logged and retried on the next tick.
func (w *LedgerWorker) RunReconcileLoop(ctx context.Context, interval time.Duration) error {
	if _, err := w.ReconcileOnce(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup reconciliation failed", log.FieldError, err.Error())
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ReconcileOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic reconciliation failed", log.FieldError, err.Error())
			}
		}
	}
}
