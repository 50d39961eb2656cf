package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/db2api/gateway/pkg/adapters/datasource"
)

// Executor runs single parameterized statements on a cached pool. It does
// not own the pool; Close is a no-op.
type Executor struct {
	pool *pgxpool.Pool
}

// NewExecutor binds an executor to an already-resolved pool resource.
func NewExecutor(pool datasource.PoolConnector) (*Executor, error) {
	pgxPool, err := datasource.UnwrapPostgresPool(pool)
	if err != nil {
		return nil, err
	}
	return &Executor{pool: pgxPool}, nil
}

// Query runs a SELECT and collects all rows, preserving the driver's
// reported column order.
func (e *Executor) Query(ctx context.Context, sqlText string, params []any) (*datasource.QueryResult, error) {
	rows, err := e.pool.Query(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
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
	tag, err := e.pool.Exec(ctx, sqlText, params...)
	if err != nil {
		return 0, fmt.Errorf("execute statement: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Placeholder returns the pgx positional marker for the 1-based index n.
func (e *Executor) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (e *Executor) Close() error {
	// Pool lifetime is owned by the resource cache.
	return nil
}
