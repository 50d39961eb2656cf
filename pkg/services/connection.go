// Package services implements the gateway's business logic over the
// repositories, the crypto layer and the datasource adapters.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/adapters/datasource"
	"github.com/db2api/gateway/pkg/apperrors"
	"github.com/db2api/gateway/pkg/crypto"
	"github.com/db2api/gateway/pkg/logging"
	"github.com/db2api/gateway/pkg/models"
	"github.com/db2api/gateway/pkg/repositories"
)

// SchemaRefresher is notified when the set of exposed tables may have
// changed. The GraphQL layer implements it; refresh failures must not fail
// the triggering mutation.
type SchemaRefresher interface {
	Refresh(ctx context.Context) error
}

// ConnectionService manages connection descriptors. Passwords are encrypted
// before they reach the repository and decrypted only transiently when a
// live resource is needed.
type ConnectionService struct {
	repo      repositories.ConnectionRepository
	cipher    *crypto.SecretCipher
	cache     *datasource.ResourceCache
	refresher SchemaRefresher
	logger    *zap.Logger
}

// NewConnectionService creates a new connection service. refresher may be
// nil during wiring; set it with SetRefresher once the GraphQL layer exists.
func NewConnectionService(
	repo repositories.ConnectionRepository,
	cipher *crypto.SecretCipher,
	cache *datasource.ResourceCache,
	logger *zap.Logger,
) *ConnectionService {
	return &ConnectionService{
		repo:   repo,
		cipher: cipher,
		cache:  cache,
		logger: logger,
	}
}

// SetRefresher wires the schema refresher after construction. The GraphQL
// layer depends on services, so it cannot be passed to the constructor.
func (s *ConnectionService) SetRefresher(r SchemaRefresher) {
	s.refresher = r
}

// Create encrypts the password and persists the descriptor. c.Password must
// hold the plaintext on entry; it holds ciphertext on return.
func (s *ConnectionService) Create(ctx context.Context, c *models.Connection) error {
	if c.Name == "" || c.URL == "" || c.Driver == "" {
		return fmt.Errorf("name, url and driver are required: %w", apperrors.ErrBadRequest)
	}
	if !datasource.IsRegistered(c.Driver) {
		return fmt.Errorf("unsupported driver %q: %w", c.Driver, apperrors.ErrBadRequest)
	}

	encrypted, err := s.cipher.Encrypt(c.Password)
	if err != nil {
		return fmt.Errorf("failed to encrypt password: %w", err)
	}
	c.Password = encrypted

	if err := s.repo.Create(ctx, c); err != nil {
		return err
	}

	s.logger.Info("created connection",
		zap.String("connection_id", c.ID.String()),
		zap.String("name", c.Name),
		zap.String("driver", c.Driver),
		zap.String("url", logging.SanitizeConnectionString(c.URL)),
	)
	return nil
}

// Get returns a descriptor by id. The Password field holds ciphertext.
func (s *ConnectionService) Get(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all descriptors. Password fields hold ciphertext.
func (s *ConnectionService) List(ctx context.Context) ([]*models.Connection, error) {
	return s.repo.List(ctx)
}

// Update persists changed descriptor fields and invalidates the cached
// resource so the next use rebuilds with fresh details. passwordChanged
// tells the service whether c.Password carries a new plaintext password; if
// false the stored ciphertext is kept untouched.
func (s *ConnectionService) Update(ctx context.Context, c *models.Connection, passwordChanged bool) error {
	existing, err := s.repo.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}

	if passwordChanged {
		encrypted, err := s.cipher.Encrypt(c.Password)
		if err != nil {
			return fmt.Errorf("failed to encrypt password: %w", err)
		}
		c.Password = encrypted
	} else {
		c.Password = existing.Password
	}

	if c.Driver != "" && !datasource.IsRegistered(c.Driver) {
		return fmt.Errorf("unsupported driver %q: %w", c.Driver, apperrors.ErrBadRequest)
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return err
	}

	s.cache.Invalidate(c.ID)
	s.logger.Info("updated connection", zap.String("connection_id", c.ID.String()))
	return nil
}

// Delete removes the descriptor, its dependent API definitions (cascade),
// the cached resource, and refreshes the GraphQL schema since exposed
// tables may have disappeared.
func (s *ConnectionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.cache.Invalidate(id)
	s.refreshSchema(ctx)

	s.logger.Info("deleted connection", zap.String("connection_id", id.String()))
	return nil
}

// TestConnection opens a short-lived connection and reports reachability.
// Failures are logged and reported as false; this call never returns an
// error to the caller.
func (s *ConnectionService) TestConnection(ctx context.Context, id uuid.UUID) bool {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("test connection: descriptor lookup failed",
			zap.String("connection_id", id.String()),
			zap.String("error", logging.SanitizeError(err)),
		)
		return false
	}

	cfg, err := s.connConfig(c)
	if err != nil {
		s.logger.Warn("test connection: decrypt failed", zap.String("connection_id", id.String()))
		return false
	}

	reg, err := datasource.Lookup(c.Driver)
	if err != nil {
		s.logger.Warn("test connection: unknown driver",
			zap.String("connection_id", id.String()),
			zap.String("driver", c.Driver),
		)
		return false
	}

	tester, err := reg.TesterFactory(ctx, cfg)
	if err != nil {
		s.logger.Warn("test connection failed",
			zap.String("connection_id", id.String()),
			zap.String("error", logging.SanitizeError(err)),
		)
		return false
	}
	defer tester.Close()

	if err := tester.TestConnection(ctx); err != nil {
		s.logger.Warn("test connection failed",
			zap.String("connection_id", id.String()),
			zap.String("error", logging.SanitizeError(err)),
		)
		return false
	}
	return true
}

// Resolve returns the live pooled resource for a descriptor, building it on
// first use through the cache.
func (s *ConnectionService) Resolve(ctx context.Context, id uuid.UUID) (datasource.PoolConnector, *models.Connection, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := s.connConfig(c)
	if err != nil {
		return nil, nil, err
	}

	pool, err := s.cache.Resolve(ctx, c.ID, c.Driver, cfg)
	if err != nil {
		return nil, nil, err
	}
	return pool, c, nil
}

// ConnConfigFor decrypts a descriptor's password into a transient config for
// short-lived adapter use (introspection, testing).
func (s *ConnectionService) ConnConfigFor(c *models.Connection) (datasource.ConnConfig, error) {
	return s.connConfig(c)
}

func (s *ConnectionService) connConfig(c *models.Connection) (datasource.ConnConfig, error) {
	password, err := s.cipher.Decrypt(c.Password)
	if err != nil {
		return datasource.ConnConfig{}, fmt.Errorf("failed to decrypt password: %w", err)
	}
	return datasource.ConnConfig{
		URL:      c.URL,
		Username: c.Username,
		Password: password,
	}, nil
}

func (s *ConnectionService) refreshSchema(ctx context.Context) {
	if s.refresher == nil {
		return
	}
	if err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Warn("schema refresh failed", zap.String("error", logging.SanitizeError(err)))
	}
}
