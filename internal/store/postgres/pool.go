package postgres

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PoolConfig configures the connection pool shared by all stores.
// Zero values fall back to the defaults noted on each field.
type PoolConfig struct {
	// ConnString is a postgres:// URL or key=value DSN.
	ConnString string

	MaxConns          int32         // 10
	MinConns          int32         // 2
	MaxConnLifetime   time.Duration // 1h
	MaxConnIdleTime   time.Duration // 30m
	HealthCheckPeriod time.Duration // 1m
	ConnectTimeout    time.Duration // 10s

	// StartupTimeout bounds how long NewPool retries the first ping while
	// the database is still coming up. Default: 30s
	StartupTimeout time.Duration

	// AutoMigrate runs RunMigrations once the pool is connected.
	AutoMigrate bool
}

// NewPool connects a pool, waits for the database to answer and, when
// AutoMigrate is set, applies pending migrations before returning it.
func NewPool(ctx context.Context, cfg *PoolConfig) (*pgxpool.Pool, error) {
	if cfg == nil || cfg.ConnString == "" {
		return nil, errors.New("invalid pool config: connection string is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = cmp.Or(cfg.MaxConns, 10)
	poolConfig.MinConns = cmp.Or(cfg.MinConns, 2)
	poolConfig.MaxConnLifetime = cmp.Or(cfg.MaxConnLifetime, time.Hour)
	poolConfig.MaxConnIdleTime = cmp.Or(cfg.MaxConnIdleTime, 30*time.Minute)
	poolConfig.HealthCheckPeriod = cmp.Or(cfg.HealthCheckPeriod, time.Minute)
	poolConfig.ConnConfig.ConnectTimeout = cmp.Or(cfg.ConnectTimeout, 10*time.Second)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := ping(ctx, pool, cmp.Or(cfg.StartupTimeout, 30*time.Second)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return pool, nil
}

func ping(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, pool.Ping(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Dur("retry_in", next).Msg("Database not ready, retrying")
		}),
	)
	return err
}
