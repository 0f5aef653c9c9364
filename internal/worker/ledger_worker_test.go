package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"moneymanager/internal/amqp"
	"moneymanager/internal/core"
	"moneymanager/internal/services"
	sheetsmem "moneymanager/internal/sheets/memory"
	"moneymanager/internal/storage/memory"
)

func newWorker() (*LedgerWorker, *sheetsmem.Ledger, *memory.Store) {
	store := memory.New()
	ledger := sheetsmem.New()
	return NewLedgerWorker(ledger, services.NewTransferReconciler(store), nil), ledger, store
}

func TestHandleEvent(t *testing.T) {
	w, ledger, _ := newWorker()
	ctx := context.Background()

	ev := amqp.NewTransactionEvent(amqp.OpCreated, "u1", time.Now(), core.Transaction{
		ID: "t1", Type: core.Expense, Amount: decimal.NewFromInt(12), Account: core.Cash,
		Category: "food", Division: core.Personal, Date: time.Now(),
	})
	if err := w.HandleEvent(ctx, ev); err != nil {
		t.Fatal(err)
	}
	if got := ledger.Entries(); len(got) != 1 || got[0].TransactionID != "t1" || got[0].Amount != "12" {
		t.Fatalf("entries = %+v", got)
	}

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.OpDeleted, "u1", time.Now())); err != nil {
		t.Fatalf("empty event should be dropped quietly: %v", err)
	}
}

func TestHandleEventLedgerFailure(t *testing.T) {
	w, ledger, _ := newWorker()
	boom := errors.New("sheets unavailable")
	ledger.FailWith(boom)

	ev := amqp.NewTransactionEvent(amqp.OpCreated, "u1", time.Now(), core.Transaction{ID: "t1"})
	if err := w.HandleEvent(context.Background(), ev); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the ledger error so the message is requeued", err)
	}
}

func TestReconcileOnce(t *testing.T) {
	w, _, store := newWorker()
	ctx := context.Background()
	lone := core.Transaction{
		UserID: "u1", Type: core.TransferOut, Amount: decimal.NewFromInt(4),
		Category: core.TransferCategory, Division: core.Personal, Account: core.Bank,
		Description: "half", Date: time.Now(), TransferID: "TRF-x",
	}
	if _, err := store.Create(ctx, lone); err != nil {
		t.Fatal(err)
	}

	rep, err := w.ReconcileOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rep.TotalTransfers != 1 || len(rep.Incomplete) != 1 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestRunReconcileLoopStopsOnCancel(t *testing.T) {
	w, _, _ := newWorker()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.RunReconcileLoop(ctx, 5*time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}
