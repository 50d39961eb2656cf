package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/logging"
	"github.com/db2api/gateway/pkg/models"
	"github.com/db2api/gateway/pkg/services"
)

// OrganizationRequest is the create/update body for organizations.
type OrganizationRequest struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// OrganizationHandler serves the admin surface for organizations and their
// API clients.
type OrganizationHandler struct {
	orgs   *services.OrganizationService
	logger *zap.Logger
}

// NewOrganizationHandler creates a new organization handler.
func NewOrganizationHandler(orgs *services.OrganizationService, logger *zap.Logger) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs, logger: logger}
}

// RegisterRoutes registers the organization routes on the given mux.
func (h *OrganizationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/organizations", h.Create)
	mux.HandleFunc("GET /api/organizations", h.List)
	mux.HandleFunc("GET /api/organizations/{id}", h.Get)
	mux.HandleFunc("PUT /api/organizations/{id}", h.Update)
	mux.HandleFunc("DELETE /api/organizations/{id}", h.Delete)
	mux.HandleFunc("POST /api/organizations/{id}/clients", h.CreateClient)
	mux.HandleFunc("GET /api/organizations/{id}/clients", h.ListClients)
	mux.HandleFunc("DELETE /api/clients/{id}", h.DeleteClient)
}

// Create handles POST /api/organizations.
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req OrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	org := &models.Organization{Name: req.Name, Status: req.Status}
	if err := h.orgs.Create(r.Context(), org); err != nil {
		h.writeError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, org); err != nil {
		h.logger.Error("Failed to encode organization", zap.Error(err))
	}
}

// List handles GET /api/organizations.
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if orgs == nil {
		orgs = []*models.Organization{}
	}
	if err := WriteJSON(w, http.StatusOK, orgs); err != nil {
		h.logger.Error("Failed to encode organizations", zap.Error(err))
	}
}

// Get handles GET /api/organizations/{id}.
func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	org, err := h.orgs.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, org); err != nil {
		h.logger.Error("Failed to encode organization", zap.Error(err))
	}
}

// Update handles PUT /api/organizations/{id}.
func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req OrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	org := &models.Organization{ID: id, Name: req.Name, Status: req.Status}
	if err := h.orgs.Update(r.Context(), org); err != nil {
		h.writeError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, org); err != nil {
		h.logger.Error("Failed to encode organization", zap.Error(err))
	}
}

// Delete handles DELETE /api/organizations/{id}.
func (h *OrganizationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.orgs.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateClient handles POST /api/organizations/{id}/clients.
// The response carries the plaintext secret exactly once.
func (h *OrganizationHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	created, err := h.orgs.CreateClient(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, created); err != nil {
		h.logger.Error("Failed to encode client", zap.Error(err))
	}
}

// ListClients handles GET /api/organizations/{id}/clients.
func (h *OrganizationHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	clients, err := h.orgs.ListClients(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if clients == nil {
		clients = []*models.Client{}
	}
	if err := WriteJSON(w, http.StatusOK, clients); err != nil {
		h.logger.Error("Failed to encode clients", zap.Error(err))
	}
}

// DeleteClient handles DELETE /api/clients/{id}.
func (h *OrganizationHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.orgs.DeleteClient(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrganizationHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *OrganizationHandler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("organization request failed", zap.String("error", logging.SanitizeError(err)))
	}
	_ = ErrorResponse(w, status, logging.SanitizeError(err))
}
