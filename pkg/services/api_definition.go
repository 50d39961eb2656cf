package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/apperrors"
	"github.com/db2api/gateway/pkg/logging"
	"github.com/db2api/gateway/pkg/models"
	"github.com/db2api/gateway/pkg/repositories"
)

// APIDefinitionService manages dynamic endpoint definitions. Every
// successful mutation triggers a GraphQL schema refresh so the published
// schema never goes stale relative to the definition store.
type APIDefinitionService struct {
	repo      repositories.APIDefinitionRepository
	conns     repositories.ConnectionRepository
	refresher SchemaRefresher
	logger    *zap.Logger
}

// NewAPIDefinitionService creates a new API definition service.
func NewAPIDefinitionService(
	repo repositories.APIDefinitionRepository,
	conns repositories.ConnectionRepository,
	logger *zap.Logger,
) *APIDefinitionService {
	return &APIDefinitionService{
		repo:   repo,
		conns:  conns,
		logger: logger,
	}
}

// SetRefresher wires the schema refresher after construction.
func (s *APIDefinitionService) SetRefresher(r SchemaRefresher) {
	s.refresher = r
}

// Create validates and persists a definition. The table name is not checked
// against the live schema; a bad name surfaces at first use.
func (s *APIDefinitionService) Create(ctx context.Context, d *models.APIDefinition) error {
	if err := s.validate(ctx, d); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return err
	}

	s.logger.Info("created api definition",
		zap.String("definition_id", d.ID.String()),
		zap.String("table", d.TableName),
		zap.String("api_type", d.APIType),
	)
	s.refreshSchema(ctx)
	return nil
}

// Get returns a definition by id.
func (s *APIDefinitionService) Get(ctx context.Context, id uuid.UUID) (*models.APIDefinition, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all definitions.
func (s *APIDefinitionService) List(ctx context.Context) ([]*models.APIDefinition, error) {
	return s.repo.List(ctx)
}

// ListByConnection returns the definitions that reference a connection.
func (s *APIDefinitionService) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]*models.APIDefinition, error) {
	return s.repo.ListByConnection(ctx, connectionID)
}

// FindByTable returns the first definition matching table and API type
// case-insensitively, oldest first.
func (s *APIDefinitionService) FindByTable(ctx context.Context, tableName, apiType string) (*models.APIDefinition, error) {
	return s.repo.FindByTable(ctx, tableName, apiType)
}

// Update validates and persists changed fields.
func (s *APIDefinitionService) Update(ctx context.Context, d *models.APIDefinition) error {
	if err := s.validate(ctx, d); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return err
	}

	s.logger.Info("updated api definition", zap.String("definition_id", d.ID.String()))
	s.refreshSchema(ctx)
	return nil
}

// Delete removes a definition.
func (s *APIDefinitionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("deleted api definition", zap.String("definition_id", id.String()))
	s.refreshSchema(ctx)
	return nil
}

func (s *APIDefinitionService) validate(ctx context.Context, d *models.APIDefinition) error {
	if d.TableName == "" {
		return fmt.Errorf("table name is required: %w", apperrors.ErrBadRequest)
	}
	if !strings.EqualFold(d.APIType, models.APITypeREST) && !strings.EqualFold(d.APIType, models.APITypeGraphQL) {
		return fmt.Errorf("api type must be REST or GraphQL: %w", apperrors.ErrBadRequest)
	}
	for _, op := range strings.Split(d.AllowedOperations, ",") {
		op = strings.TrimSpace(op)
		if op == "" {
			continue
		}
		if !strings.EqualFold(op, models.OpGet) && !strings.EqualFold(op, models.OpPut) && !strings.EqualFold(op, models.OpDelete) {
			return fmt.Errorf("unknown operation %q: %w", op, apperrors.ErrBadRequest)
		}
	}

	if _, err := s.conns.GetByID(ctx, d.ConnectionID); err != nil {
		return fmt.Errorf("connection %s: %w", d.ConnectionID, err)
	}
	return nil
}

func (s *APIDefinitionService) refreshSchema(ctx context.Context) {
	if s.refresher == nil {
		return
	}
	if err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Warn("schema refresh failed", zap.String("error", logging.SanitizeError(err)))
	}
}
