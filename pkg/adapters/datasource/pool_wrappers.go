package datasource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPool wraps *pgxpool.Pool to implement PoolConnector.
type PostgresPool struct {
	pool *pgxpool.Pool
}

// NewPostgresPool wraps an existing pgx pool.
func NewPostgresPool(pool *pgxpool.Pool) *PostgresPool {
	return &PostgresPool{pool: pool}
}

func (p *PostgresPool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresPool) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresPool) Type() string {
	return "postgres"
}

// Pool returns the underlying *pgxpool.Pool.
func (p *PostgresPool) Pool() *pgxpool.Pool {
	return p.pool
}

// UnwrapPostgresPool extracts the pgx pool from a PoolConnector.
func UnwrapPostgresPool(connector PoolConnector) (*pgxpool.Pool, error) {
	wrapper, ok := connector.(*PostgresPool)
	if !ok {
		return nil, fmt.Errorf("connector is not a PostgreSQL pool")
	}
	return wrapper.Pool(), nil
}

// SQLServerPool wraps *sql.DB to implement PoolConnector.
type SQLServerPool struct {
	db *sql.DB
}

// NewSQLServerPool wraps an existing *sql.DB.
func NewSQLServerPool(db *sql.DB) *SQLServerPool {
	return &SQLServerPool{db: db}
}

func (p *SQLServerPool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *SQLServerPool) Close() error {
	return p.db.Close()
}

func (p *SQLServerPool) Type() string {
	return "sqlserver"
}

// DB returns the underlying *sql.DB.
func (p *SQLServerPool) DB() *sql.DB {
	return p.db
}

// UnwrapSQLServerDB extracts the *sql.DB from a PoolConnector.
func UnwrapSQLServerDB(connector PoolConnector) (*sql.DB, error) {
	wrapper, ok := connector.(*SQLServerPool)
	if !ok {
		return nil, fmt.Errorf("connector is not a SQL Server pool")
	}
	return wrapper.DB(), nil
}
