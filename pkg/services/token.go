package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/apperrors"
	"github.com/db2api/gateway/pkg/config"
	"github.com/db2api/gateway/pkg/crypto"
	"github.com/db2api/gateway/pkg/repositories"
)

// IssuedToken is the body of a successful token response.
type IssuedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// TokenService issues HS256 bearer tokens under the OAuth2 client
// credentials grant. Validation order is fixed: grant type first, then
// client lookup, then secret comparison.
type TokenService struct {
	clients repositories.ClientRepository
	cipher  *crypto.SecretCipher
	cfg     config.TokenConfig
	logger  *zap.Logger

	now func() time.Time
}

// NewTokenService creates a new token service.
func NewTokenService(
	clients repositories.ClientRepository,
	cipher *crypto.SecretCipher,
	cfg config.TokenConfig,
	logger *zap.Logger,
) *TokenService {
	return &TokenService{
		clients: clients,
		cipher:  cipher,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Issue validates the client credentials and returns a signed token.
// Returns ErrUnsupportedGrant for any grant type other than
// client_credentials and ErrInvalidClient for unknown clients or wrong
// secrets; the two cases are indistinguishable to the caller.
func (s *TokenService) Issue(ctx context.Context, grantType, clientID, clientSecret string) (*IssuedToken, error) {
	if grantType != "client_credentials" {
		return nil, fmt.Errorf("grant type %q: %w", grantType, apperrors.ErrUnsupportedGrant)
	}

	client, err := s.clients.GetByClientID(ctx, clientID)
	if err != nil {
		s.logger.Warn("token request for unknown client", zap.String("client_id", clientID))
		return nil, apperrors.ErrInvalidClient
	}

	storedSecret, err := s.cipher.Decrypt(client.ClientSecret)
	if err != nil {
		s.logger.Error("failed to decrypt stored client secret", zap.String("client_id", clientID))
		return nil, apperrors.ErrInvalidClient
	}
	if subtle.ConstantTimeCompare([]byte(storedSecret), []byte(clientSecret)) != 1 {
		s.logger.Warn("token request with wrong secret", zap.String("client_id", clientID))
		return nil, apperrors.ErrInvalidClient
	}

	now := s.now()
	claims := jwt.MapClaims{
		"iss":   s.cfg.Issuer,
		"sub":   client.ClientID,
		"scope": s.cfg.Scope,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Duration(s.cfg.ExpirySeconds) * time.Second).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.SigningSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info("issued token", zap.String("client_id", client.ClientID))
	return &IssuedToken{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   s.cfg.ExpirySeconds,
		Scope:       s.cfg.Scope,
	}, nil
}
