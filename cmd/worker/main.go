// Package main is the entry point of the LangQuest background worker.
//
// The worker keeps the cached leaderboard warm and trims the payment event
// ledger. It never serves traffic and can be scaled to zero without
// affecting correctness: the API rebuilds the leaderboard on a cache miss.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/langquest/langquest-core/config"
	"github.com/langquest/langquest-core/internal/bootstrap"
	"github.com/langquest/langquest-core/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIG & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := bootstrap.Logger(cfg).Named("worker")
	defer log.Sync()

	if !cfg.Scheduler.Enabled {
		log.Info("scheduler disabled by SCHEDULER_ENABLED, exiting")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	// The API server owns migrations; the worker only checks connectivity.
	conn, err := bootstrap.Postgres(ctx, cfg.Database, false, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database connection...")
		conn.Close()
	}()

	cache := bootstrap.Redis(cfg.Redis, log)
	if cache != nil {
		defer cache.Close()
	}
	caches := bootstrap.NewCaches(cache, cfg.Redis, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. JOBS
	// ─────────────────────────────────────────────────────────────────────────
	sched, err := bootstrap.Scheduler(conn, caches, cfg, log)
	if err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. RUN & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	log.Info("LangQuest worker is running", logger.Int("jobs", len(sched.ListJobs())))

	<-ctx.Done()
	log.Info("received shutdown signal")

	if err := sched.Stop(); err != nil {
		log.Warn("scheduler stop failed", logger.Err(err))
	}

	snap := sched.Metrics().Snapshot()
	log.Info("shutdown completed successfully",
		logger.Int64("executions", snap.TotalExecutions),
		logger.Int64("failures", snap.TotalFailures),
	)
	return nil
}
