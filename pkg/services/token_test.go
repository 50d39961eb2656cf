package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/apperrors"
	"github.com/db2api/gateway/pkg/config"
	"github.com/db2api/gateway/pkg/crypto"
	"github.com/db2api/gateway/pkg/models"
)

func newTokenService(t *testing.T) (*TokenService, *fakeClientRepository, *crypto.SecretCipher) {
	t.Helper()

	cipher, err := crypto.NewSecretCipher("test-secret")
	require.NoError(t, err)

	repo := newFakeClientRepository()
	svc := NewTokenService(repo, cipher, config.TokenConfig{
		SigningSecret: "signing-secret",
		Issuer:        "http://gateway.test",
		ExpirySeconds: 3600,
		Scope:         "api:read api:write",
	}, zap.NewNop())
	return svc, repo, cipher
}

func seedClient(t *testing.T, repo *fakeClientRepository, cipher *crypto.SecretCipher, clientID, secret string) {
	t.Helper()
	encrypted, err := cipher.Encrypt(secret)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &models.Client{
		ClientID:     clientID,
		ClientSecret: encrypted,
	}))
}

func TestIssueRejectsUnsupportedGrant(t *testing.T) {
	svc, repo, cipher := newTokenService(t)
	seedClient(t, repo, cipher, "client-1", "secret-1")

	// Grant type is checked first, even with valid credentials.
	_, err := svc.Issue(context.Background(), "password", "client-1", "secret-1")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedGrant)
}

func TestIssueRejectsUnknownClient(t *testing.T) {
	svc, _, _ := newTokenService(t)

	_, err := svc.Issue(context.Background(), "client_credentials", "nobody", "whatever")
	assert.ErrorIs(t, err, apperrors.ErrInvalidClient)
}

func TestIssueRejectsWrongSecret(t *testing.T) {
	svc, repo, cipher := newTokenService(t)
	seedClient(t, repo, cipher, "client-1", "secret-1")

	_, err := svc.Issue(context.Background(), "client_credentials", "client-1", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrInvalidClient)
}

func TestIssueSignsValidToken(t *testing.T) {
	svc, repo, cipher := newTokenService(t)
	seedClient(t, repo, cipher, "client-1", "secret-1")

	issued, err := svc.Issue(context.Background(), "client_credentials", "client-1", "secret-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.Equal(t, 3600, issued.ExpiresIn)

	token, err := jwt.Parse(issued.AccessToken, func(t *jwt.Token) (any, error) {
		return []byte("signing-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	sub, _ := claims.GetSubject()
	assert.Equal(t, "client-1", sub)
	iss, _ := claims.GetIssuer()
	assert.Equal(t, "http://gateway.test", iss)
	assert.Equal(t, "api:read api:write", claims["scope"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp.Time, time.Minute)
}
