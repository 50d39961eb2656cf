package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/adapters/datasource"
	"github.com/db2api/gateway/pkg/logging"
)

// IntrospectionService lists tables and columns of external databases.
// Introspection is exploratory: failures are logged and reported as an
// empty result, never as an error. Each call dials a short-lived
// connection and closes it; introspection never touches the resource cache.
type IntrospectionService struct {
	conns  *ConnectionService
	logger *zap.Logger
}

// NewIntrospectionService creates a new introspection service.
func NewIntrospectionService(conns *ConnectionService, logger *zap.Logger) *IntrospectionService {
	return &IntrospectionService{conns: conns, logger: logger}
}

// ListTables returns the user tables reachable through a connection, or an
// empty slice when the database cannot be reached.
func (s *IntrospectionService) ListTables(ctx context.Context, connectionID uuid.UUID) []string {
	introspector, ok := s.open(ctx, connectionID)
	if !ok {
		return []string{}
	}
	defer introspector.Close()

	tables, err := introspector.ListTables(ctx)
	if err != nil {
		s.logger.Warn("failed to list tables",
			zap.String("connection_id", connectionID.String()),
			zap.String("error", logging.SanitizeError(err)),
		)
		return []string{}
	}
	return tables
}

// ListColumns returns the columns of a table in ordinal order, or an empty
// slice on any failure.
func (s *IntrospectionService) ListColumns(ctx context.Context, connectionID uuid.UUID, table string) []string {
	introspector, ok := s.open(ctx, connectionID)
	if !ok {
		return []string{}
	}
	defer introspector.Close()

	columns, err := introspector.ListColumns(ctx, table)
	if err != nil {
		s.logger.Warn("failed to list columns",
			zap.String("connection_id", connectionID.String()),
			zap.String("table", table),
			zap.String("error", logging.SanitizeError(err)),
		)
		return []string{}
	}
	return columns
}

func (s *IntrospectionService) open(ctx context.Context, connectionID uuid.UUID) (datasource.SchemaIntrospector, bool) {
	c, err := s.conns.Get(ctx, connectionID)
	if err != nil {
		s.logger.Warn("introspection: descriptor lookup failed",
			zap.String("connection_id", connectionID.String()),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, false
	}

	cfg, err := s.conns.ConnConfigFor(c)
	if err != nil {
		s.logger.Warn("introspection: decrypt failed", zap.String("connection_id", connectionID.String()))
		return nil, false
	}

	reg, err := datasource.Lookup(c.Driver)
	if err != nil {
		s.logger.Warn("introspection: unknown driver",
			zap.String("connection_id", connectionID.String()),
			zap.String("driver", c.Driver),
		)
		return nil, false
	}

	introspector, err := reg.IntrospectorFactory(ctx, cfg)
	if err != nil {
		s.logger.Warn("introspection: connect failed",
			zap.String("connection_id", connectionID.String()),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, false
	}
	return introspector, true
}
