package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/adapters/datasource"
	"github.com/db2api/gateway/pkg/apperrors"
	"github.com/db2api/gateway/pkg/logging"
	"github.com/db2api/gateway/pkg/models"
	"github.com/db2api/gateway/pkg/sqlsafe"
)

// QueryExecutorService builds and runs parameterized statements against the
// external database behind an API definition. Identifiers are validated
// before any SQL text is assembled; values travel only as bind parameters.
// Each statement is autonomous - no transaction spans calls.
type QueryExecutorService struct {
	conns  *ConnectionService
	logger *zap.Logger
}

// NewQueryExecutorService creates a new query executor service.
func NewQueryExecutorService(conns *ConnectionService, logger *zap.Logger) *QueryExecutorService {
	return &QueryExecutorService{conns: conns, logger: logger}
}

// Read runs SELECT <columns> FROM <table> for a definition, with the
// included-columns list when non-empty and * otherwise. No filtering,
// ordering or pagination.
func (s *QueryExecutorService) Read(ctx context.Context, def *models.APIDefinition) (*datasource.QueryResult, error) {
	if err := sqlsafe.ValidateIdentifier(def.TableName); err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrBadRequest)
	}

	columnExpr := "*"
	if columns := def.Columns(); columns != nil {
		if err := sqlsafe.ValidateIdentifiers(columns); err != nil {
			return nil, fmt.Errorf("%v: %w", err, apperrors.ErrBadRequest)
		}
		columnExpr = strings.Join(columns, ", ")
	}

	executor, err := s.executorFor(ctx, def)
	if err != nil {
		return nil, err
	}
	defer executor.Close()

	sqlText := fmt.Sprintf("SELECT %s FROM %s", columnExpr, def.TableName)
	s.logQuery(def, sqlText)

	result, err := executor.Query(ctx, sqlText, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %v: %w", logging.SanitizeError(err), apperrors.ErrUpstream)
	}
	return result, nil
}

// Insert builds INSERT INTO <table> (k1,k2,...) VALUES (...) from a flat
// payload, binding each value positionally. Keys are sorted so the
// generated statement is deterministic.
func (s *QueryExecutorService) Insert(ctx context.Context, def *models.APIDefinition, payload map[string]any) (int64, error) {
	if len(payload) == 0 {
		return 0, fmt.Errorf("empty insert payload: %w", apperrors.ErrBadRequest)
	}
	if err := sqlsafe.ValidateIdentifier(def.TableName); err != nil {
		return 0, fmt.Errorf("%v: %w", err, apperrors.ErrBadRequest)
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if err := sqlsafe.ValidateIdentifiers(keys); err != nil {
		return 0, fmt.Errorf("%v: %w", err, apperrors.ErrBadRequest)
	}
	if results := sqlsafe.CheckAllParameters(payload); len(results) > 0 {
		s.logInjection(def, results)
		return 0, fmt.Errorf("parameter %q failed injection screen: %w", results[0].ParamName, apperrors.ErrBadRequest)
	}

	executor, err := s.executorFor(ctx, def)
	if err != nil {
		return 0, err
	}
	defer executor.Close()

	placeholders := make([]string, len(keys))
	params := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = executor.Placeholder(i + 1)
		params[i] = payload[k]
	}

	sqlText := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		def.TableName, strings.Join(keys, ", "), strings.Join(placeholders, ", "))
	s.logQuery(def, sqlText)

	affected, err := executor.Exec(ctx, sqlText, params)
	if err != nil {
		return 0, fmt.Errorf("insert failed: %v: %w", logging.SanitizeError(err), apperrors.ErrUpstream)
	}
	return affected, nil
}

// Delete builds DELETE FROM <table> WHERE k1 = ? AND ... from equality
// conditions. An empty condition set is rejected before any SQL is built;
// unconditional deletes never run.
func (s *QueryExecutorService) Delete(ctx context.Context, def *models.APIDefinition, conditions map[string]string) (int64, error) {
	if len(conditions) == 0 {
		return 0, fmt.Errorf("delete requires at least one condition: %w", apperrors.ErrBadRequest)
	}
	if err := sqlsafe.ValidateIdentifier(def.TableName); err != nil {
		return 0, fmt.Errorf("%v: %w", err, apperrors.ErrBadRequest)
	}

	keys := make([]string, 0, len(conditions))
	values := make(map[string]any, len(conditions))
	for k, v := range conditions {
		keys = append(keys, k)
		values[k] = v
	}
	sort.Strings(keys)

	if err := sqlsafe.ValidateIdentifiers(keys); err != nil {
		return 0, fmt.Errorf("%v: %w", err, apperrors.ErrBadRequest)
	}
	if results := sqlsafe.CheckAllParameters(values); len(results) > 0 {
		s.logInjection(def, results)
		return 0, fmt.Errorf("parameter %q failed injection screen: %w", results[0].ParamName, apperrors.ErrBadRequest)
	}

	executor, err := s.executorFor(ctx, def)
	if err != nil {
		return 0, err
	}
	defer executor.Close()

	clauses := make([]string, len(keys))
	params := make([]any, len(keys))
	for i, k := range keys {
		clauses[i] = fmt.Sprintf("%s = %s", k, executor.Placeholder(i+1))
		params[i] = conditions[k]
	}

	sqlText := fmt.Sprintf("DELETE FROM %s WHERE %s", def.TableName, strings.Join(clauses, " AND "))
	s.logQuery(def, sqlText)

	affected, err := executor.Exec(ctx, sqlText, params)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %v: %w", logging.SanitizeError(err), apperrors.ErrUpstream)
	}
	return affected, nil
}

func (s *QueryExecutorService) executorFor(ctx context.Context, def *models.APIDefinition) (datasource.QueryExecutor, error) {
	pool, conn, err := s.conns.Resolve(ctx, def.ConnectionID)
	if err != nil {
		return nil, fmt.Errorf("resolve connection: %v: %w", logging.SanitizeError(err), apperrors.ErrUpstream)
	}

	reg, err := datasource.Lookup(conn.Driver)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrUpstream)
	}

	executor, err := reg.ExecutorFactory(pool)
	if err != nil {
		return nil, fmt.Errorf("bind executor: %v: %w", logging.SanitizeError(err), apperrors.ErrUpstream)
	}
	return executor, nil
}

func (s *QueryExecutorService) logQuery(def *models.APIDefinition, sqlText string) {
	s.logger.Debug("executing dynamic query",
		zap.String("definition_id", def.ID.String()),
		zap.String("table", def.TableName),
		zap.String("query", logging.SanitizeQuery(sqlText)),
	)
}

func (s *QueryExecutorService) logInjection(def *models.APIDefinition, results []*sqlsafe.InjectionCheckResult) {
	for _, r := range results {
		s.logger.Warn("rejected parameter with injection pattern",
			zap.String("definition_id", def.ID.String()),
			zap.String("table", def.TableName),
			zap.String("param", r.ParamName),
			zap.String("fingerprint", r.Fingerprint),
		)
	}
}
