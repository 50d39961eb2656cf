package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/db2api/gateway/pkg/apperrors"
	"github.com/db2api/gateway/pkg/database"
	"github.com/db2api/gateway/pkg/models"
)

// APIDefinitionRepository defines data access for dynamic endpoint definitions.
type APIDefinitionRepository interface {
	Create(ctx context.Context, d *models.APIDefinition) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.APIDefinition, error)
	List(ctx context.Context) ([]*models.APIDefinition, error)
	ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]*models.APIDefinition, error)
	// FindByTable returns the oldest definition whose table name and API type
	// match case-insensitively, or ErrNotFound.
	FindByTable(ctx context.Context, tableName, apiType string) (*models.APIDefinition, error)
	Update(ctx context.Context, d *models.APIDefinition) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type apiDefinitionRepository struct {
	db *database.DB
}

// NewAPIDefinitionRepository creates a new API definition repository.
func NewAPIDefinitionRepository(db *database.DB) APIDefinitionRepository {
	return &apiDefinitionRepository{db: db}
}

const apiDefinitionColumns = `id, table_name, api_type, allowed_operations, included_columns, connection_id, created_at, updated_at`

func (r *apiDefinitionRepository) Create(ctx context.Context, d *models.APIDefinition) error {
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	query := `
		INSERT INTO gateway_api_definitions (table_name, api_type, allowed_operations, included_columns, connection_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		d.TableName, d.APIType, d.AllowedOperations, d.IncludedColumns, d.ConnectionID, d.CreatedAt, d.UpdatedAt,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to create api definition: %w", err)
	}
	return nil
}

func (r *apiDefinitionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.APIDefinition, error) {
	query := `SELECT ` + apiDefinitionColumns + ` FROM gateway_api_definitions WHERE id = $1`

	d, err := scanAPIDefinition(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api definition: %w", err)
	}
	return d, nil
}

func (r *apiDefinitionRepository) List(ctx context.Context) ([]*models.APIDefinition, error) {
	query := `SELECT ` + apiDefinitionColumns + ` FROM gateway_api_definitions ORDER BY created_at`
	return r.queryDefinitions(ctx, query)
}

func (r *apiDefinitionRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]*models.APIDefinition, error) {
	query := `SELECT ` + apiDefinitionColumns + ` FROM gateway_api_definitions WHERE connection_id = $1 ORDER BY created_at`
	return r.queryDefinitions(ctx, query, connectionID)
}

func (r *apiDefinitionRepository) FindByTable(ctx context.Context, tableName, apiType string) (*models.APIDefinition, error) {
	query := `
		SELECT ` + apiDefinitionColumns + `
		FROM gateway_api_definitions
		WHERE lower(table_name) = lower($1) AND lower(api_type) = lower($2)
		ORDER BY created_at
		LIMIT 1`

	d, err := scanAPIDefinition(r.db.QueryRow(ctx, query, tableName, apiType))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find api definition: %w", err)
	}
	return d, nil
}

func (r *apiDefinitionRepository) Update(ctx context.Context, d *models.APIDefinition) error {
	d.UpdatedAt = time.Now()

	query := `
		UPDATE gateway_api_definitions
		SET table_name = $2, api_type = $3, allowed_operations = $4, included_columns = $5, connection_id = $6, updated_at = $7
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, d.ID, d.TableName, d.APIType, d.AllowedOperations, d.IncludedColumns, d.ConnectionID, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update api definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *apiDefinitionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM gateway_api_definitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete api definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *apiDefinitionRepository) queryDefinitions(ctx context.Context, query string, args ...any) ([]*models.APIDefinition, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list api definitions: %w", err)
	}
	defer rows.Close()

	var defs []*models.APIDefinition
	for rows.Next() {
		d, err := scanAPIDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api definition: %w", err)
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate api definitions: %w", err)
	}
	return defs, nil
}

func scanAPIDefinition(row pgx.Row) (*models.APIDefinition, error) {
	var d models.APIDefinition
	err := row.Scan(&d.ID, &d.TableName, &d.APIType, &d.AllowedOperations, &d.IncludedColumns, &d.ConnectionID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
