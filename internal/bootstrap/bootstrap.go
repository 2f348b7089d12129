// Package bootstrap builds the infrastructure shared by the LangQuest
// binaries from a loaded config.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/langquest/langquest-core/config"
	"github.com/langquest/langquest-core/internal/application/command"
	"github.com/langquest/langquest-core/internal/application/query"
	"github.com/langquest/langquest-core/internal/domain/leaderboard"
	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/internal/domain/subscription"
	"github.com/langquest/langquest-core/internal/infrastructure/persistence/postgres"
	"github.com/langquest/langquest-core/internal/infrastructure/persistence/redis"
	"github.com/langquest/langquest-core/internal/infrastructure/scheduler"
	"github.com/langquest/langquest-core/internal/infrastructure/scheduler/jobs"
	"github.com/langquest/langquest-core/pkg/logger"
)

// Logger returns the process logger for cfg.
func Logger(cfg *config.Config) *logger.Logger {
	return logger.NewForEnvironment(string(cfg.App.Environment), cfg.Log.Level).
		With(logger.String("service", cfg.App.Name), logger.String("version", cfg.App.Version))
}

// Postgres opens the connection pool and, when migrate is set, applies
// pending migrations.
func Postgres(ctx context.Context, cfg config.DatabaseConfig, migrate bool, log *logger.Logger) (*postgres.Connection, error) {
	pgCfg := postgres.DefaultConfig(cfg.URL)
	pgCfg.MaxConns = int32(cfg.MaxConns)
	pgCfg.MinConns = int32(cfg.MinConns)
	pgCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime

	log.Info("connecting to database...")
	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established")

	if !migrate {
		return conn, nil
	}

	applied, err := postgres.NewMigrator(conn).Migrate(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date", logger.Int("applied", applied))
	return conn, nil
}

// Redis connects to Redis when configured. It returns nil when Redis is
// disabled or unreachable; the caller then runs without it.
func Redis(cfg config.RedisConfig, log *logger.Logger) *redis.Cache {
	if !cfg.Enabled() {
		log.Info("redis disabled, running without shared cache")
		return nil
	}

	redisCfg := redis.DefaultConfig()
	redisCfg.Host = cfg.Host
	redisCfg.Port = cfg.Port
	redisCfg.Password = cfg.Password
	redisCfg.DB = cfg.DB
	redisCfg.PoolSize = cfg.PoolSize
	redisCfg.MinIdleConns = cfg.MinIdleConns
	redisCfg.DialTimeout = cfg.DialTimeout
	redisCfg.ReadTimeout = cfg.ReadTimeout
	redisCfg.WriteTimeout = cfg.WriteTimeout

	log.Info("connecting to Redis...", logger.String("addr", redisCfg.Addr()))
	cache, err := redis.NewCache(redisCfg)
	if err != nil {
		log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
		return nil
	}
	log.Info("Redis connection established")
	return cache
}

// Caches holds the Redis-backed collaborators, or their in-process
// fallbacks when cache is nil.
type Caches struct {
	Leaderboard leaderboard.Cache
	Invalidator shared.ViewInvalidator
	EventLock   subscription.EventLock
}

// NewCaches wires the Redis adapters. Interfaces stay nil rather than
// holding typed nil pointers.
func NewCaches(cache *redis.Cache, cfg config.RedisConfig, log *logger.Logger) Caches {
	if cache == nil {
		return Caches{
			Invalidator: shared.NoopInvalidator{},
			EventLock:   command.NewLocalEventLock(),
		}
	}

	board := redis.NewLeaderboardCache(cache)
	return Caches{
		Leaderboard: board,
		Invalidator: redis.NewViewInvalidator(cache, board, shared.SystemClock{}, log),
		EventLock:   redis.NewEventLock(cache, cfg.EventLockTTL),
	}
}

// Leaderboard builds the leaderboard query used by both the API and the
// worker's rebuild job.
func Leaderboard(conn *postgres.Connection, caches Caches, cfg config.RedisConfig, log *logger.Logger) *query.GetLeaderboardHandler {
	return query.NewGetLeaderboardHandler(
		postgres.NewProgressRepository(conn),
		caches.Leaderboard,
		cfg.LeaderboardTTL,
		shared.SystemClock{},
		log.Named("leaderboard"),
	)
}

// Scheduler returns a scheduler with every background job registered. The
// leaderboard rebuild is skipped when there is no cache to warm.
func Scheduler(conn *postgres.Connection, caches Caches, cfg *config.Config, log *logger.Logger) (*scheduler.Scheduler, error) {
	schedCfg := scheduler.DefaultConfig()
	schedCfg.JobTimeout = cfg.Scheduler.JobTimeout
	sched := scheduler.New(schedCfg, log)

	if caches.Leaderboard != nil {
		rebuild := jobs.NewRebuildLeaderboardJob(Leaderboard(conn, caches, cfg.Redis, log), log)
		if err := sched.Register(rebuild, cfg.Scheduler.LeaderboardInterval); err != nil {
			return nil, err
		}
	} else {
		log.Info("no leaderboard cache, skipping rebuild_leaderboard")
	}

	prune := jobs.NewPruneLedgerJob(postgres.NewEventLedgerRepository(conn), cfg.Scheduler.LedgerRetention, nil, log)
	if err := sched.Register(prune, cfg.Scheduler.PruneInterval); err != nil {
		return nil, err
	}
	return sched, nil
}
