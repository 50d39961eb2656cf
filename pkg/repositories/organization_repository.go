package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/db2api/gateway/pkg/apperrors"
	"github.com/db2api/gateway/pkg/database"
	"github.com/db2api/gateway/pkg/models"
)

// OrganizationRepository defines data access for API-consumer organizations.
type OrganizationRepository interface {
	Create(ctx context.Context, o *models.Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	List(ctx context.Context) ([]*models.Organization, error)
	Update(ctx context.Context, o *models.Organization) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type organizationRepository struct {
	db *database.DB
}

// NewOrganizationRepository creates a new organization repository.
func NewOrganizationRepository(db *database.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, o *models.Organization) error {
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now

	query := `
		INSERT INTO gateway_organizations (name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.db.QueryRow(ctx, query, o.Name, o.Status, o.CreatedAt, o.UpdatedAt).Scan(&o.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	query := `
		SELECT id, name, status, created_at, updated_at
		FROM gateway_organizations
		WHERE id = $1`

	var o models.Organization
	err := r.db.QueryRow(ctx, query, id).Scan(&o.ID, &o.Name, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &o, nil
}

func (r *organizationRepository) List(ctx context.Context) ([]*models.Organization, error) {
	query := `
		SELECT id, name, status, created_at, updated_at
		FROM gateway_organizations
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate organizations: %w", err)
	}
	return orgs, nil
}

func (r *organizationRepository) Update(ctx context.Context, o *models.Organization) error {
	o.UpdatedAt = time.Now()

	query := `
		UPDATE gateway_organizations
		SET name = $2, status = $3, updated_at = $4
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, o.ID, o.Name, o.Status, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *organizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Clients cascade via the foreign key.
	tag, err := r.db.Exec(ctx, `DELETE FROM gateway_organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
