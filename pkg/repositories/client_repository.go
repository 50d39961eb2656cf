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

// ClientRepository defines data access for API clients. The client_secret
// column always holds ciphertext.
type ClientRepository interface {
	Create(ctx context.Context, c *models.Client) error
	GetByClientID(ctx context.Context, clientID string) (*models.Client, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type clientRepository struct {
	db *database.DB
}

// NewClientRepository creates a new client repository.
func NewClientRepository(db *database.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, c *models.Client) error {
	c.CreatedAt = time.Now()

	query := `
		INSERT INTO gateway_clients (client_id, client_secret, organization_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.db.QueryRow(ctx, query, c.ClientID, c.ClientSecret, c.OrganizationID, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (r *clientRepository) GetByClientID(ctx context.Context, clientID string) (*models.Client, error) {
	query := `
		SELECT id, client_id, client_secret, organization_id, created_at
		FROM gateway_clients
		WHERE client_id = $1`

	var c models.Client
	err := r.db.QueryRow(ctx, query, clientID).Scan(&c.ID, &c.ClientID, &c.ClientSecret, &c.OrganizationID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &c, nil
}

func (r *clientRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Client, error) {
	query := `
		SELECT id, client_id, client_secret, organization_id, created_at
		FROM gateway_clients
		WHERE organization_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.ClientID, &c.ClientSecret, &c.OrganizationID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clients: %w", err)
	}
	return clients, nil
}

func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM gateway_clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
