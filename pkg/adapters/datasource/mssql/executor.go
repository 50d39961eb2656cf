package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/db2api/gateway/pkg/adapters/datasource"
)

// Executor runs single parameterized statements on a cached pool. It does
// not own the pool; Close is a no-op.
type Executor struct {
	db *sql.DB
}

// NewExecutor binds an executor to an already-resolved pool resource.
func NewExecutor(pool datasource.PoolConnector) (*Executor, error) {
	db, err := datasource.UnwrapSQLServerDB(pool)
	if err != nil {
		return nil, err
	}
	return &Executor{db: db}, nil
}

// Query runs a SELECT and collects all rows, preserving the driver's
// reported column order.
func (e *Executor) Query(ctx context.Context, sqlText string, params []any) (*datasource.QueryResult, error) {
	rows, err := e.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read column names: %w", err)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			// database/sql returns []byte for many text types; normalize
			// to string so JSON output is readable.
			if b, ok := values[i].([]byte); ok {
				rowMap[col] = string(b)
			} else {
				rowMap[col] = values[i]
			}
		}
		resultRows = append(resultRows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return &datasource.QueryResult{Columns: columns, Rows: resultRows}, nil
}

// Exec runs a DML statement and returns the affected-row count.
func (e *Executor) Exec(ctx context.Context, sqlText string, params []any) (int64, error) {
	result, err := e.db.ExecContext(ctx, sqlText, params...)
	if err != nil {
		return 0, fmt.Errorf("execute statement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read rows affected: %w", err)
	}
	return affected, nil
}

// Placeholder returns the go-mssqldb positional marker for the 1-based
// index n.
func (e *Executor) Placeholder(n int) string {
	return fmt.Sprintf("@p%d", n)
}

func (e *Executor) Close() error {
	// Pool lifetime is owned by the resource cache.
	return nil
}
