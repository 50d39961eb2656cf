package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/db2api/gateway/pkg/adapters/datasource"
)

// Introspector lists SQL Server tables and columns from INFORMATION_SCHEMA.
type Introspector struct {
	db *sql.DB
}

// NewIntrospector opens a fresh short-lived connection for metadata queries.
func NewIntrospector(ctx context.Context, cfg datasource.ConnConfig) (*Introspector, error) {
	db, err := open(cfg)
	if err != nil {
		return nil, err
	}
	return &Introspector{db: db}, nil
}

// ListTables returns user tables and views.
func (i *Introspector) ListTables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE IN ('BASE TABLE', 'VIEW')
		ORDER BY TABLE_NAME`

	rows, err := i.db.QueryContext(ctx, query)
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
		SELECT COLUMN_NAME
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_NAME = @p1
		ORDER BY ORDINAL_POSITION`

	rows, err := i.db.QueryContext(ctx, query, table)
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
	return i.db.Close()
}
