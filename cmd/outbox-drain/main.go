package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omtlabs/timesheet-hub/internal/server"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/infrastructure/persistence"
)

// Reconciliation loop for the task total-time aggregate: applies pending
// outbox deltas that the in-request best-effort drains left behind.
func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	ledger := persistence.NewLedgerPGStore(pool)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("outbox drain started",
		slog.Int("limit", cfg.DrainLimit),
		slog.Duration("interval", cfg.DrainInterval))

	ticker := time.NewTicker(cfg.DrainInterval)
	defer ticker.Stop()

	for {
		applied, err := ledger.Drain(ctx, cfg.DrainLimit)
		if err != nil {
			logger.Warn("drain pass failed", slog.Any("error", err))
		} else if applied > 0 {
			logger.Info("applied task-time deltas", slog.Int("count", applied))
		}

		select {
		case <-ctx.Done():
			logger.Info("outbox drain stopping")
			return
		case <-ticker.C:
		}
	}
}
