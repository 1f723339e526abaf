package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/d-ashesss/nulland/db"
	"github.com/d-ashesss/nulland/internal/auth"
	"github.com/d-ashesss/nulland/internal/config"
	"github.com/d-ashesss/nulland/internal/events"
	"github.com/d-ashesss/nulland/internal/note"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	store, err := note.NewStore(pool, logger)
	if err != nil {
		return nil, fmt.Errorf("creating note store: %w", err)
	}
	a.Store = store

	a.Verifier = auth.NewVerifier(cfg.Auth.JWKSURI, &http.Client{Timeout: 10 * time.Second}, logger)

	sink, sinkCleanup, err := provideSink(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Sink = sink
	a.sinkCleanup = sinkCleanup

	return a, nil
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
// Pool is configured with sensible defaults for connection management.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	cleanup := func() {
		pool.Close()
	}

	return pool, cleanup, nil
}

// provideSink selects the notification sink from configuration.
// Notifications are best-effort, but a misconfigured redis sink is a
// startup error rather than a silent drop of every event.
func provideSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (events.Sink, func() error, error) {
	switch cfg.EventsSink {
	case config.SinkRedis:
		rs, err := events.NewRedisSink(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("creating redis sink: %w", err)
		}
		return rs, rs.Close, nil
	case config.SinkLog:
		return events.LogSink{Logger: logger}, nil, nil
	default:
		return events.NoopSink{}, nil, nil
	}
}
