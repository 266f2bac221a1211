package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/rickgao/insider-trades/internal/config"
)

// Handle holds an open database and the resources behind it.
type Handle struct {
	// DB is the database/sql handle used by the store.
	DB *sql.DB

	// Driver is "postgres" or "sqlite".
	Driver string

	// Pool is the pgx pool behind DB for postgres, nil for sqlite.
	Pool *pgxpool.Pool
}

// Open connects to the database selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Handle, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return &Handle{
			DB:     stdlib.OpenDBFromPool(pool),
			Driver: cfg.Driver,
			Pool:   pool,
		}, nil

	case config.DriverSQLite:
		db, err := OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &Handle{DB: db, Driver: cfg.Driver}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Connect creates a single connection pool.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	connStr := BuildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Close releases the database.
func (h *Handle) Close() error {
	err := h.DB.Close()
	if h.Pool != nil {
		h.Pool.Close()
	}
	return err
}

// Ping verifies the connection is healthy.
func (h *Handle) Ping(ctx context.Context) error {
	if err := h.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", h.Driver, err)
	}
	return nil
}
