// Package db contains code for connecting to the database.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookwell/customer-sync/internal/config"
	"github.com/bookwell/customer-sync/internal/db/sqlc"
	"github.com/bookwell/customer-sync/internal/logger"
)

const (
	defaultMaxConns        = 10
	defaultMinConns        = 2
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnectTimeout  = 10 * time.Second
)

// Connection wraps the connection pool and query interface
type Connection struct {
	Pool    *pgxpool.Pool
	Queries *sqlc.Queries
}

// NewConnection creates a new database connection pool from the provided configuration
func NewConnection(ctx context.Context, cfg *config.DatabaseConfig) (*Connection, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	if cfg.Host == "" {
		return nil, fmt.Errorf("database host is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("database port is required")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("database user is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database name is required")
	}

	connString, err := cfg.GetConnectionString()
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = defaultMaxConns
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	}
	poolConfig.MinConns = defaultMinConns
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	}
	poolConfig.MaxConnLifetime = defaultConnMaxLifetime
	if cfg.ConnMaxLifetime != "" {
		duration, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			return nil, fmt.Errorf("invalid connection max lifetime: %w", err)
		}
		poolConfig.MaxConnLifetime = duration
	}
	poolConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Database connection established: %s@%s:%d/%s",
		cfg.User, cfg.Host, cfg.Port, cfg.Database)

	return &Connection{
		Pool:    pool,
		Queries: sqlc.New(pool),
	}, nil
}

// Close closes the connection pool
func (c *Connection) Close() {
	if c.Pool != nil {
		logger.Info("Closing database connection")
		c.Pool.Close()
	}
}

// Ping verifies the database connection is still alive
func (c *Connection) Ping(ctx context.Context) error {
	if c.Pool != nil {
		return c.Pool.Ping(ctx)
	}
	return fmt.Errorf("database connection is nil")
}
