package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/apperrors"
	"github.com/db2api/gateway/pkg/services"
)

// TokenHandler serves the OAuth2 client-credentials token endpoint.
type TokenHandler struct {
	tokens *services.TokenService
	logger *zap.Logger
}

// NewTokenHandler creates a new token handler.
func NewTokenHandler(tokens *services.TokenService, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{tokens: tokens, logger: logger}
}

// RegisterRoutes registers the token endpoint on the given mux.
func (h *TokenHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /oauth2/token", h.Token)
}

// Token handles POST /oauth2/token with form parameters grant_type,
// client_id and client_secret.
func (h *TokenHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request")
		return
	}

	issued, err := h.tokens.Issue(r.Context(),
		r.PostFormValue("grant_type"),
		r.PostFormValue("client_id"),
		r.PostFormValue("client_secret"),
	)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUnsupportedGrant):
		_ = ErrorResponse(w, http.StatusBadRequest, "unsupported_grant_type")
		return
	case errors.Is(err, apperrors.ErrInvalidClient):
		_ = ErrorResponse(w, http.StatusUnauthorized, "invalid_client")
		return
	default:
		h.logger.Error("token issuance failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "server_error")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	if err := WriteJSON(w, http.StatusOK, issued); err != nil {
		h.logger.Error("Failed to encode token response", zap.Error(err))
	}
}
