// Command reconcile runs a single transfer reconciliation pass and prints the
// report as JSON. It exits with status 2 when any transfer is broken.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"moneymanager/internal/cli"
	"moneymanager/internal/log"
	"moneymanager/internal/services"
)

func main() {
	user := flag.String("user", "", "reconcile only this user's transfers (default: every user)")
	timeout := flag.Duration("timeout", 2*time.Minute, "give up after this long")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentReconcile)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store := cli.OpenStore(ctx, logger, cfg)
	defer store.Cleanup()

	rep, err := services.NewTransferReconciler(store.Store).Reconcile(ctx, *user)
	if err != nil {
		logger.Error("Reconciliation failed", log.FieldError, err.Error())
		store.Cleanup()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		logger.Error("Failed to write report", log.FieldError, err.Error())
	}

	if !rep.Healthy() {
		store.Cleanup()
		os.Exit(2)
	}
}
