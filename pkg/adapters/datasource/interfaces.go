// Package datasource defines the adapter contracts for external relational
// databases and the process-local cache of live connection resources.
package datasource

import "context"

// ConnConfig carries the decrypted connection details for an external
// database. Callers must never log it without sanitization.
type ConnConfig struct {
	URL      string // driver-specific URL, e.g. postgres://host:5432/db
	Username string
	Password string // decrypted, transient
}

// PoolConfig bounds the pooled resource built per connection.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// PoolConnector abstracts a long-lived pooled connection resource across
// database types.
type PoolConnector interface {
	// Ping verifies the resource is alive.
	Ping(ctx context.Context) error

	// Close releases all connections held by the resource.
	Close() error

	// Type returns the driver identifier for logging.
	Type() string
}

// ConnectionTester opens a short-lived connection to verify reachability.
// Each implementation owns its connection and must be closed when done.
type ConnectionTester interface {
	// TestConnection returns nil if the database is reachable with valid
	// credentials.
	TestConnection(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// SchemaIntrospector lists tables and columns via standard relational
// metadata queries. Implementations own a transient connection; callers
// close them after use. Introspection is exploratory and infrequent, so it
// never goes through the resource cache.
type SchemaIntrospector interface {
	// ListTables returns the names of all user tables and views.
	ListTables(ctx context.Context) ([]string, error)

	// ListColumns returns column names for a table in ordinal order.
	ListColumns(ctx context.Context, table string) ([]string, error)

	// Close releases the connection.
	Close() error
}

// QueryExecutor runs single parameterized statements against a cached
// resource. It does not own the underlying pool; Close releases only
// executor-local state.
type QueryExecutor interface {
	// Query runs a SELECT and returns all rows with columns in the
	// driver's reported order.
	Query(ctx context.Context, sqlText string, params []any) (*QueryResult, error)

	// Exec runs a DML statement and returns the affected-row count.
	Exec(ctx context.Context, sqlText string, params []any) (int64, error)

	// Placeholder returns the dialect's positional parameter marker for
	// the 1-based index n ($1 for PostgreSQL, @p1 for SQL Server).
	Placeholder(n int) string

	// Close releases executor-local resources.
	Close() error
}

// QueryResult holds rows from a Query call. Columns preserves the driver's
// reported column order; each row maps column name to value.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}
