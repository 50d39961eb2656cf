package postgres

import (
	"context"

	"github.com/db2api/gateway/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{
			Driver:      "postgres",
			DisplayName: "PostgreSQL",
		},
		TesterFactory: func(ctx context.Context, cfg datasource.ConnConfig) (datasource.ConnectionTester, error) {
			return NewTester(ctx, cfg)
		},
		IntrospectorFactory: func(ctx context.Context, cfg datasource.ConnConfig) (datasource.SchemaIntrospector, error) {
			return NewIntrospector(ctx, cfg)
		},
		PoolFactory: NewPool,
		ExecutorFactory: func(pool datasource.PoolConnector) (datasource.QueryExecutor, error) {
			return NewExecutor(pool)
		},
	})
}
