package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/apperrors"
	"github.com/db2api/gateway/pkg/crypto"
	"github.com/db2api/gateway/pkg/models"
	"github.com/db2api/gateway/pkg/repositories"
)

// CreatedClient carries the one-time plaintext secret returned when a
// client is provisioned. The secret is shown once and stored only as
// ciphertext; it cannot be recovered later.
type CreatedClient struct {
	Client       *models.Client `json:"client"`
	ClientSecret string         `json:"client_secret"`
}

// OrganizationService manages API-consumer organizations and their clients.
type OrganizationService struct {
	orgs    repositories.OrganizationRepository
	clients repositories.ClientRepository
	cipher  *crypto.SecretCipher
	logger  *zap.Logger
}

// NewOrganizationService creates a new organization service.
func NewOrganizationService(
	orgs repositories.OrganizationRepository,
	clients repositories.ClientRepository,
	cipher *crypto.SecretCipher,
	logger *zap.Logger,
) *OrganizationService {
	return &OrganizationService{
		orgs:    orgs,
		clients: clients,
		cipher:  cipher,
		logger:  logger,
	}
}

// Create persists a new organization. An empty status defaults to Active.
func (s *OrganizationService) Create(ctx context.Context, o *models.Organization) error {
	if o.Name == "" {
		return fmt.Errorf("organization name is required: %w", apperrors.ErrBadRequest)
	}
	if o.Status == "" {
		o.Status = models.OrgStatusActive
	}
	if !models.ValidOrgStatus(o.Status) {
		return fmt.Errorf("unknown status %q: %w", o.Status, apperrors.ErrBadRequest)
	}

	if err := s.orgs.Create(ctx, o); err != nil {
		return err
	}

	s.logger.Info("created organization",
		zap.String("organization_id", o.ID.String()),
		zap.String("name", o.Name),
	)
	return nil
}

// Get returns an organization by id.
func (s *OrganizationService) Get(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return s.orgs.GetByID(ctx, id)
}

// List returns all organizations.
func (s *OrganizationService) List(ctx context.Context) ([]*models.Organization, error) {
	return s.orgs.List(ctx)
}

// Update persists changed organization fields.
func (s *OrganizationService) Update(ctx context.Context, o *models.Organization) error {
	if !models.ValidOrgStatus(o.Status) {
		return fmt.Errorf("unknown status %q: %w", o.Status, apperrors.ErrBadRequest)
	}
	return s.orgs.Update(ctx, o)
}

// Delete removes an organization. Its clients cascade.
func (s *OrganizationService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.orgs.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("deleted organization", zap.String("organization_id", id.String()))
	return nil
}

// CreateClient provisions a client under an organization. The client id and
// secret are generated here, once; the plaintext secret appears only in the
// returned CreatedClient.
func (s *OrganizationService) CreateClient(ctx context.Context, orgID uuid.UUID) (*CreatedClient, error) {
	if _, err := s.orgs.GetByID(ctx, orgID); err != nil {
		return nil, err
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate client secret: %w", err)
	}

	encrypted, err := s.cipher.Encrypt(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt client secret: %w", err)
	}

	client := &models.Client{
		ClientID:       uuid.NewString(),
		ClientSecret:   encrypted,
		OrganizationID: orgID,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info("created client",
		zap.String("organization_id", orgID.String()),
		zap.String("client_id", client.ClientID),
	)
	return &CreatedClient{Client: client, ClientSecret: secret}, nil
}

// ListClients returns an organization's clients. Secrets stay ciphertext
// and are never serialized.
func (s *OrganizationService) ListClients(ctx context.Context, orgID uuid.UUID) ([]*models.Client, error) {
	return s.clients.ListByOrganization(ctx, orgID)
}

// DeleteClient removes a client by its row id.
func (s *OrganizationService) DeleteClient(ctx context.Context, id uuid.UUID) error {
	return s.clients.Delete(ctx, id)
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
