// Package repositories provides pgx-backed CRUD over the gateway's
// metadata entities.
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

// ConnectionRepository defines data access for connection descriptors.
// The password column always holds ciphertext; encryption is the service
// layer's responsibility.
type ConnectionRepository interface {
	Create(ctx context.Context, c *models.Connection) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Connection, error)
	List(ctx context.Context) ([]*models.Connection, error)
	Update(ctx context.Context, c *models.Connection) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type connectionRepository struct {
	db *database.DB
}

// NewConnectionRepository creates a new connection repository.
func NewConnectionRepository(db *database.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) Create(ctx context.Context, c *models.Connection) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
		INSERT INTO gateway_connections (name, url, username, password, driver, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		c.Name, c.URL, c.Username, c.Password, c.Driver, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create connection: %w", err)
	}
	return nil
}

func (r *connectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
	query := `
		SELECT id, name, url, username, password, driver, created_at, updated_at
		FROM gateway_connections
		WHERE id = $1`

	var c models.Connection
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.URL, &c.Username, &c.Password, &c.Driver, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return &c, nil
}

func (r *connectionRepository) List(ctx context.Context) ([]*models.Connection, error) {
	query := `
		SELECT id, name, url, username, password, driver, created_at, updated_at
		FROM gateway_connections
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var connections []*models.Connection
	for rows.Next() {
		var c models.Connection
		if err := rows.Scan(&c.ID, &c.Name, &c.URL, &c.Username, &c.Password, &c.Driver, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		connections = append(connections, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connections: %w", err)
	}
	return connections, nil
}

func (r *connectionRepository) Update(ctx context.Context, c *models.Connection) error {
	c.UpdatedAt = time.Now()

	query := `
		UPDATE gateway_connections
		SET name = $2, url = $3, username = $4, password = $5, driver = $6, updated_at = $7
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, c.ID, c.Name, c.URL, c.Username, c.Password, c.Driver, c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to update connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *connectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// API definitions cascade via the foreign key.
	tag, err := r.db.Exec(ctx, `DELETE FROM gateway_connections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
