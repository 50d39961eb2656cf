package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/db2api/gateway/pkg/adapters/datasource"
)

// Introspector lists PostgreSQL tables and columns from information_schema.
type Introspector struct {
	pool *pgxpool.Pool
}

// NewIntrospector dials a fresh short-lived connection for metadata queries.
func NewIntrospector(ctx context.Context, cfg datasource.ConnConfig) (*Introspector, error) {
	pool, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Introspector{pool: pool}, nil
}

// ListTables returns user tables and views, excluding system schemas.
func (i *Introspector) ListTables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_type IN ('BASE TABLE', 'VIEW')
		  AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY table_name`

	rows, err := i.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

// ListColumns returns the column names of a table in ordinal order.
func (i *Introspector) ListColumns(ctx context.Context, table string) ([]string, error) {
	const query = `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = $1
		  AND table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY ordinal_position`

	rows, err := i.pool.Query(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, nil
}

func (i *Introspector) Close() error {
	i.pool.Close()
	return nil
}
