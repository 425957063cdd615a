// The recurring-worker generates due recurring transactions on a schedule,
// so obligations appear even when the server never gets a page load. It
// shares the snapshot with the main server through the same backend and
// reloads before each pass to pick up external writes.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"financas/internal/backend"
	"financas/internal/config"
	"financas/internal/ledger"
	"financas/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.DataBackend != "sqlite" {
		logger.Error("Recurring-worker requires a shared backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(ctx, backend.Config{
		Type:         backend.SQLiteBackend,
		SQLiteDBPath: cfg.SQLiteDBPath,
	})
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	store := ledger.Open(ctx, result.KV, cfg.SnapshotKey)
	engine := services.NewRecurrenceEngine(store)

	logger.Info("Recurring processor configured",
		"interval", cfg.RecurringInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	process := func(now time.Time) {
		// Pick up writes made by the server since the last pass.
		store.Reload(ctx)
		count, err := engine.MaterializeMonth(ctx, now.Year(), int(now.Month()))
		if err != nil {
			logger.Error("Recurring processing failed", "error", err)
			return
		}
		if count > 0 {
			logger.Info("Recurring processing complete", "created", count)
		}
	}

	// Run initial processing on startup
	process(time.Now())

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Recurring-worker shutdown complete")
			return
		case now := <-ticker.C:
			process(now)
		}
	}
}
