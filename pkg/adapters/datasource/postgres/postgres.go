// Package postgres implements the datasource adapter contracts for
// PostgreSQL using pgx.
package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/db2api/gateway/pkg/adapters/datasource"
)

// connString injects the credentials into the descriptor URL.
// User-provided fields are URL-escaped so special characters in passwords
// (@, /, #, ?) cannot break parsing.
func connString(cfg datasource.ConnConfig) (string, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid connection URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("unexpected scheme %q for postgres driver", u.Scheme)
	}
	u.User = url.UserPassword(cfg.Username, cfg.Password)
	return u.String(), nil
}

// dial opens an unmanaged pool for transient use (tester, introspector).
func dial(ctx context.Context, cfg datasource.ConnConfig) (*pgxpool.Pool, error) {
	connStr, err := connString(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return pool, nil
}

// NewPool creates the long-lived pooled resource for the cache.
func NewPool(ctx context.Context, cfg datasource.ConnConfig, poolCfg datasource.PoolConfig) (datasource.PoolConnector, error) {
	connStr, err := connString(cfg)
	if err != nil {
		return nil, err
	}

	pgxCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres connection string: %w", err)
	}
	if poolCfg.MaxConns > 0 {
		pgxCfg.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		pgxCfg.MinConns = poolCfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return datasource.NewPostgresPool(pool), nil
}

// Tester verifies PostgreSQL connectivity over a transient pool.
type Tester struct {
	pool *pgxpool.Pool
}

// NewTester dials a short-lived connection for a reachability check.
func NewTester(ctx context.Context, cfg datasource.ConnConfig) (*Tester, error) {
	pool, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Tester{pool: pool}, nil
}

// TestConnection pings and runs a trivial query to confirm database access.
func (t *Tester) TestConnection(ctx context.Context) error {
	if err := t.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	var result int
	if err := t.pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

func (t *Tester) Close() error {
	t.pool.Close()
	return nil
}
