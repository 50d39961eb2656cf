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

// APIDefinitionRequest is the create/update body for endpoint definitions.
type APIDefinitionRequest struct {
	TableName         string    `json:"table_name"`
	APIType           string    `json:"api_type"`
	AllowedOperations string    `json:"allowed_operations"`
	IncludedColumns   string    `json:"included_columns"`
	ConnectionID      uuid.UUID `json:"connection_id"`
}

// APIDefinitionHandler serves the admin CRUD surface for endpoint
// definitions.
type APIDefinitionHandler struct {
	defs   *services.APIDefinitionService
	logger *zap.Logger
}

// NewAPIDefinitionHandler creates a new API definition handler.
func NewAPIDefinitionHandler(defs *services.APIDefinitionService, logger *zap.Logger) *APIDefinitionHandler {
	return &APIDefinitionHandler{defs: defs, logger: logger}
}

// RegisterRoutes registers the definition routes on the given mux.
func (h *APIDefinitionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/definitions", h.Create)
	mux.HandleFunc("GET /api/definitions", h.List)
	mux.HandleFunc("GET /api/definitions/{id}", h.Get)
	mux.HandleFunc("PUT /api/definitions/{id}", h.Update)
	mux.HandleFunc("DELETE /api/definitions/{id}", h.Delete)
}

// Create handles POST /api/definitions.
func (h *APIDefinitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req APIDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def := &models.APIDefinition{
		TableName:         req.TableName,
		APIType:           req.APIType,
		AllowedOperations: req.AllowedOperations,
		IncludedColumns:   req.IncludedColumns,
		ConnectionID:      req.ConnectionID,
	}
	if err := h.defs.Create(r.Context(), def); err != nil {
		h.writeError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, def); err != nil {
		h.logger.Error("Failed to encode definition", zap.Error(err))
	}
}

// List handles GET /api/definitions with an optional connection_id filter.
func (h *APIDefinitionHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		defs []*models.APIDefinition
		err  error
	)
	if raw := r.URL.Query().Get("connection_id"); raw != "" {
		connectionID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid connection_id")
			return
		}
		defs, err = h.defs.ListByConnection(r.Context(), connectionID)
	} else {
		defs, err = h.defs.List(r.Context())
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	if defs == nil {
		defs = []*models.APIDefinition{}
	}
	if err := WriteJSON(w, http.StatusOK, defs); err != nil {
		h.logger.Error("Failed to encode definitions", zap.Error(err))
	}
}

// Get handles GET /api/definitions/{id}.
func (h *APIDefinitionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	def, err := h.defs.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, def); err != nil {
		h.logger.Error("Failed to encode definition", zap.Error(err))
	}
}

// Update handles PUT /api/definitions/{id}.
func (h *APIDefinitionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req APIDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def := &models.APIDefinition{
		ID:                id,
		TableName:         req.TableName,
		APIType:           req.APIType,
		AllowedOperations: req.AllowedOperations,
		IncludedColumns:   req.IncludedColumns,
		ConnectionID:      req.ConnectionID,
	}
	if err := h.defs.Update(r.Context(), def); err != nil {
		h.writeError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, def); err != nil {
		h.logger.Error("Failed to encode definition", zap.Error(err))
	}
}

// Delete handles DELETE /api/definitions/{id}.
func (h *APIDefinitionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.defs.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIDefinitionHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid definition id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *APIDefinitionHandler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("definition request failed", zap.String("error", logging.SanitizeError(err)))
	}
	_ = ErrorResponse(w, status, logging.SanitizeError(err))
}
