package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"financas/internal/backend"
	"financas/internal/cache"
	"financas/internal/config"
	apphttp "financas/internal/http"
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

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(ctx, backend.Config{
		Type:         backend.BackendType(cfg.DataBackend),
		SQLiteDBPath: cfg.SQLiteDBPath,
		QuotaBytes:   cfg.MemoryQuotaBytes,
	})
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
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
	commands := services.NewLedgerService(store, engine)
	reconciler := services.NewReconciler(store)

	// Materialize the current month on startup so the first page load is
	// already complete.
	now := time.Now()
	if created, err := engine.MaterializeMonth(ctx, now.Year(), int(now.Month())); err != nil {
		logger.Error("Startup materialization failed", "error", err)
	} else if created > 0 {
		logger.Info("Startup materialization complete", "created", created)
	}

	srv := apphttp.NewServer(":"+cfg.Port, store, commands, reconciler, engine, apphttp.Options{
		CacheMaxSize: cfg.CacheMaxSize,
		CacheTTL:     cfg.CacheTTL,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	cacheManager := cache.NewManager()
	srv.RegisterCaches(cacheManager)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting financas server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
