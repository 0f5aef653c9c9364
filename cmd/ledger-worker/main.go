package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"moneymanager/internal/amqp"
	"moneymanager/internal/cli"
	"moneymanager/internal/config"
	"moneymanager/internal/log"
	"moneymanager/internal/services"
	"moneymanager/internal/sheets"
	gsheet "moneymanager/internal/sheets/google"
	sheetsmem "moneymanager/internal/sheets/memory"
	"moneymanager/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	logger.Info("Starting ledger-worker")

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	store := cli.OpenStore(startCtx, logger, cfg)
	defer store.Cleanup()

	// Mirror to Google Sheets when configured; otherwise keep the ledger in
	// memory so reconciliation and the consumer still run.
	var ledger sheets.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(startCtx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, gsheet.CredentialsFromEnv(), logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
			os.Exit(1)
		}
		ledger = client
		logger.Info("Google Sheets ledger enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		ledger = sheetsmem.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, ledger kept in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewLedgerWorker(ledger, services.NewTransferReconciler(store.Store), logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeTransactionEvents(gctx, w.HandleEvent)
	})
	g.Go(func() error {
		return w.RunReconcileLoop(gctx, cfg.ReconcileInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}

	if ctx.Err() != nil {
		cli.WaitForShutdown(ctx, done)
	}
	logger.Info("Ledger worker stopped gracefully")
}
