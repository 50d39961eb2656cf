package services

import (
	"context"
	"fmt"

	"github.com/db2api/gateway/pkg/adapters/datasource"
	"github.com/db2api/gateway/pkg/apperrors"
	"github.com/db2api/gateway/pkg/models"
)

// DispatcherService is the stateless router behind /api/dynamic. It maps a
// table name and verb to the single matching REST definition (first match
// by table and type), gates the verb against the allow-list, then delegates
// to the query executor. Gating happens before any SQL is built.
type DispatcherService struct {
	defs     *APIDefinitionService
	executor *QueryExecutorService
}

// NewDispatcherService creates a new dispatcher.
func NewDispatcherService(defs *APIDefinitionService, executor *QueryExecutorService) *DispatcherService {
	return &DispatcherService{defs: defs, executor: executor}
}

// Get reads all rows for a table's REST definition.
func (s *DispatcherService) Get(ctx context.Context, tableName string) (*datasource.QueryResult, error) {
	def, err := s.resolve(ctx, tableName, models.OpGet)
	if err != nil {
		return nil, err
	}
	return s.executor.Read(ctx, def)
}

// Put inserts a row built from a flat JSON payload.
func (s *DispatcherService) Put(ctx context.Context, tableName string, payload map[string]any) (int64, error) {
	def, err := s.resolve(ctx, tableName, models.OpPut)
	if err != nil {
		return 0, err
	}
	return s.executor.Insert(ctx, def, payload)
}

// Delete removes rows matching the given equality conditions.
func (s *DispatcherService) Delete(ctx context.Context, tableName string, conditions map[string]string) (int64, error) {
	def, err := s.resolve(ctx, tableName, models.OpDelete)
	if err != nil {
		return 0, err
	}
	return s.executor.Delete(ctx, def, conditions)
}

func (s *DispatcherService) resolve(ctx context.Context, tableName, op string) (*models.APIDefinition, error) {
	def, err := s.defs.FindByTable(ctx, tableName, models.APITypeREST)
	if err != nil {
		return nil, err
	}
	if !def.AllowsOperation(op) {
		return nil, fmt.Errorf("%s not allowed for %s: %w", op, tableName, apperrors.ErrNotAllowed)
	}
	return def, nil
}
