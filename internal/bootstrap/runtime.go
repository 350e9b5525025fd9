package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/queuectl/config"
	redisadapter "github.com/target/queuectl/internal/adapters/redis"
	"github.com/target/queuectl/internal/core"
	"github.com/target/queuectl/internal/data"
	"github.com/target/queuectl/internal/service"
)

// Runtime holds the connections and services shared by every command.
type Runtime struct {
	Config *config.AppConfig
	Logger *slog.Logger

	DB    *sql.DB
	Redis redis.UniversalClient

	Store *data.JobRepo
	// Registry is nil when Redis is disabled or unreachable.
	Registry core.WorkerRegistry
	Jobs     *service.JobService
}

// RuntimeOptions controls NewRuntime.
type RuntimeOptions struct {
	Config *config.AppConfig
	Logger *slog.Logger
	// SkipMigrations overrides DB_RUN_MIGRATIONS_ON_START, e.g. for the migrate command itself.
	SkipMigrations bool
}

// NewRuntime connects to Postgres (and Redis when enabled), applies migrations
// when configured, and builds the job service.
func NewRuntime(ctx context.Context, opts RuntimeOptions) (*Runtime, error) {
	if opts.Config == nil {
		return nil, errors.New("runtime config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config

	db, err := ConnectDB(ctx, DatabaseConfig{DBConfig: cfg.Postgres, Logger: logger})
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, Logger: logger, DB: db}

	if cfg.Postgres.RunMigrationsOnStart && !opts.SkipMigrations {
		if err := RunMigrations(ctx, db, logger); err != nil {
			return nil, errors.Join(err, rt.Close())
		}
	}

	rt.Store = data.NewJobRepo(db, data.RepoConfig{
		Logger:      logger,
		OutputLimit: cfg.Worker.OutputLimit,
	})

	if cfg.Redis.Enabled {
		client, redisErr := ConnectRedis(ctx, DatabaseConfig{RedisConfig: cfg.Redis, Logger: logger})
		if redisErr != nil {
			// Redis only backs worker liveness; the queue itself works without it.
			logger.WarnContext(ctx, "worker registry disabled", "error", redisErr)
		} else {
			rt.Redis = client
			rt.Registry = redisadapter.NewWorkerRegistry(client, redisadapter.WorkerRegistryOptions{
				Prefix: cfg.Redis.KeyPrefix,
				TTL:    cfg.Redis.WorkerTTL,
			})
		}
	}

	rt.Jobs, err = service.NewJobService(service.JobServiceOptions{
		Store:    rt.Store,
		Registry: rt.Registry,
		Logger:   logger,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create job service: %w", err), rt.Close())
	}
	return rt, nil
}

// Close releases the database and Redis connections.
func (r *Runtime) Close() error {
	var errs []error
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if r.DB != nil {
		if err := r.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
