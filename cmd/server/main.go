// Package main is the entry point of the LangQuest API server.
//
// The server hosts the Progress Engine endpoints and the payment webhook.
// Postgres is required; Redis is optional and only speeds up the
// leaderboard, fans out view invalidations and serialises duplicate
// webhook deliveries across instances.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/langquest/langquest-core/config"
	"github.com/langquest/langquest-core/internal/application/command"
	"github.com/langquest/langquest-core/internal/application/query"
	"github.com/langquest/langquest-core/internal/bootstrap"
	"github.com/langquest/langquest-core/internal/infrastructure/payment/stripe"
	"github.com/langquest/langquest-core/internal/infrastructure/persistence/postgres"
	httpserver "github.com/langquest/langquest-core/internal/interface/http"
	"github.com/langquest/langquest-core/internal/interface/http/handlers"
	"github.com/langquest/langquest-core/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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

	log := bootstrap.Logger(cfg).Named("server")
	defer log.Sync()

	log.Info("starting LangQuest API",
		logger.String("env", string(cfg.App.Environment)),
		logger.Bool("redis", cfg.Redis.Enabled()),
		logger.Bool("payments", cfg.Stripe.Enabled()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	conn, err := bootstrap.Postgres(ctx, cfg.Database, cfg.Database.AutoMigrate, log)
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

	courses := postgres.NewCourseRepository(conn)
	progressRepo := postgres.NewProgressRepository(conn)
	subscriptions := postgres.NewSubscriptionRepository(conn)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	deps := httpserver.Dependencies{
		SelectCourse:      command.NewSelectCourseHandler(courses, progressRepo, caches.Invalidator, log),
		ReduceHearts:      command.NewReduceHeartsHandler(courses, progressRepo, caches.Invalidator, log),
		RefillHearts:      command.NewRefillHeartsHandler(progressRepo, caches.Invalidator, log),
		CompleteChallenge: command.NewCompleteChallengeHandler(courses, progressRepo, caches.Invalidator, log),

		ListCourses:     query.NewListCoursesHandler(courses, progressRepo),
		GetUserProgress: query.NewGetUserProgressHandler(progressRepo),
		GetLearn:        query.NewGetLearnHandler(courses, progressRepo),
		GetLesson:       query.NewGetLessonHandler(courses, progressRepo),
		GetLeaderboard:  bootstrap.Leaderboard(conn, caches, cfg.Redis, log),
		GetQuests:       query.NewGetQuestsHandler(progressRepo),
		GetSubscription: query.NewGetUserSubscriptionHandler(subscriptions, nil),

		Authenticator: handlers.NewAuthenticator(cfg.Auth.JWTSecret),
		Logger:        log.Named("http"),
	}

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.SetTimeout(cfg.HTTP.HealthCheckTimeout)
	health.AddCheck("postgres", handlers.NewDatabaseCheck(conn))
	if cache != nil {
		health.AddOptionalCheck("redis", handlers.NewCacheCheck(cache))
	}
	deps.HealthChecker = health

	if cfg.Stripe.Enabled() {
		provider := stripe.NewProvider(stripe.Config{
			APIKey:        cfg.Stripe.APIKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
		}, log)
		deps.PaymentEvents = command.NewProcessPaymentEventHandler(
			provider,
			subscriptions,
			postgres.NewEventLedgerRepository(conn),
			caches.EventLock,
			log,
		)
		health.AddOptionalCheck("stripe", provider.Check)
	} else {
		log.Warn("STRIPE_WEBHOOK_SECRET not set, webhook endpoint disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpConfig.TrustProxy = cfg.HTTP.TrustProxy
	httpConfig.Version = cfg.App.Version

	server := httpserver.NewServer(httpConfig, deps)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. RUN & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		<-gctx.Done()
		log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop HTTP server gracefully: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}
