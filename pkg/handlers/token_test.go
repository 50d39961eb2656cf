package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/apperrors"
	"github.com/db2api/gateway/pkg/config"
	"github.com/db2api/gateway/pkg/crypto"
	"github.com/db2api/gateway/pkg/models"
	"github.com/db2api/gateway/pkg/repositories"
	"github.com/db2api/gateway/pkg/services"
)

// clientRepo holds a single known client.
type clientRepo struct {
	client *models.Client
}

func (r *clientRepo) Create(ctx context.Context, c *models.Client) error { return nil }

func (r *clientRepo) GetByClientID(ctx context.Context, clientID string) (*models.Client, error) {
	if r.client != nil && r.client.ClientID == clientID {
		cp := *r.client
		return &cp, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *clientRepo) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Client, error) {
	return nil, nil
}

func (r *clientRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

var _ repositories.ClientRepository = (*clientRepo)(nil)

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()

	cipher, err := crypto.NewSecretCipher("test-secret")
	require.NoError(t, err)

	encrypted, err := cipher.Encrypt("good-secret")
	require.NoError(t, err)

	repo := &clientRepo{client: &models.Client{ClientID: "client-1", ClientSecret: encrypted}}
	svc := services.NewTokenService(repo, cipher, config.TokenConfig{
		SigningSecret: "signing-secret",
		Issuer:        "http://gateway.test",
		ExpirySeconds: 3600,
		Scope:         "api:read",
	}, zap.NewNop())

	mux := http.NewServeMux()
	NewTokenHandler(svc, zap.NewNop()).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postToken(t *testing.T, srv *httptest.Server, form url.Values) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.PostForm(srv.URL+"/oauth2/token", form)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestTokenEndpointSuccess(t *testing.T) {
	srv := newTokenServer(t)

	resp, body := postToken(t, srv, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"client-1"},
		"client_secret": {"good-secret"},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer", body["token_type"])
	assert.Equal(t, float64(3600), body["expires_in"])
	assert.NotEmpty(t, body["access_token"])
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

func TestTokenEndpointUnsupportedGrant(t *testing.T) {
	srv := newTokenServer(t)

	resp, body := postToken(t, srv, url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {"client-1"},
		"client_secret": {"good-secret"},
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unsupported_grant_type", body["error"])
}

func TestTokenEndpointInvalidClient(t *testing.T) {
	srv := newTokenServer(t)

	cases := []struct {
		name string
		form url.Values
	}{
		{"unknown client", url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {"nobody"},
			"client_secret": {"good-secret"},
		}},
		{"wrong secret", url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {"client-1"},
			"client_secret": {"bad"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := postToken(t, srv, tc.form)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "invalid_client", body["error"])
		})
	}
}
