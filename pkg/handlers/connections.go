package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/adapters/datasource"
	"github.com/db2api/gateway/pkg/logging"
	"github.com/db2api/gateway/pkg/models"
	"github.com/db2api/gateway/pkg/services"
)

// ConnectionRequest is the create/update body for connection descriptors.
// Password carries plaintext in transit only; on update it is applied only
// when PasswordChanged is set, so clients never have to echo the stored
// password back.
type ConnectionRequest struct {
	Name            string `json:"name"`
	URL             string `json:"url"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	Driver          string `json:"driver"`
	PasswordChanged bool   `json:"password_changed"`
}

// ConnectionHandler serves the admin CRUD surface for connection
// descriptors plus connection testing and schema browsing.
type ConnectionHandler struct {
	conns      *services.ConnectionService
	introspect *services.IntrospectionService
	logger     *zap.Logger
}

// NewConnectionHandler creates a new connection handler.
func NewConnectionHandler(
	conns *services.ConnectionService,
	introspect *services.IntrospectionService,
	logger *zap.Logger,
) *ConnectionHandler {
	return &ConnectionHandler{conns: conns, introspect: introspect, logger: logger}
}

// RegisterRoutes registers the connection routes on the given mux.
func (h *ConnectionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/connections", h.Create)
	mux.HandleFunc("GET /api/connections", h.List)
	mux.HandleFunc("GET /api/connections/{id}", h.Get)
	mux.HandleFunc("PUT /api/connections/{id}", h.Update)
	mux.HandleFunc("DELETE /api/connections/{id}", h.Delete)
	mux.HandleFunc("POST /api/connections/{id}/test", h.Test)
	mux.HandleFunc("GET /api/connections/{id}/tables", h.Tables)
	mux.HandleFunc("GET /api/connections/{id}/tables/{table}/columns", h.Columns)
	mux.HandleFunc("GET /api/adapters", h.Adapters)
}

// Create handles POST /api/connections.
func (h *ConnectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conn := &models.Connection{
		Name:     req.Name,
		URL:      req.URL,
		Username: req.Username,
		Password: req.Password,
		Driver:   req.Driver,
	}
	if err := h.conns.Create(r.Context(), conn); err != nil {
		h.writeError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, conn); err != nil {
		h.logger.Error("Failed to encode connection", zap.Error(err))
	}
}

// List handles GET /api/connections.
func (h *ConnectionHandler) List(w http.ResponseWriter, r *http.Request) {
	conns, err := h.conns.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if conns == nil {
		conns = []*models.Connection{}
	}
	if err := WriteJSON(w, http.StatusOK, conns); err != nil {
		h.logger.Error("Failed to encode connections", zap.Error(err))
	}
}

// Get handles GET /api/connections/{id}.
func (h *ConnectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	conn, err := h.conns.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, conn); err != nil {
		h.logger.Error("Failed to encode connection", zap.Error(err))
	}
}

// Update handles PUT /api/connections/{id}.
func (h *ConnectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req ConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conn := &models.Connection{
		ID:       id,
		Name:     req.Name,
		URL:      req.URL,
		Username: req.Username,
		Password: req.Password,
		Driver:   req.Driver,
	}
	if err := h.conns.Update(r.Context(), conn, req.PasswordChanged); err != nil {
		h.writeError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, conn); err != nil {
		h.logger.Error("Failed to encode connection", zap.Error(err))
	}
}

// Delete handles DELETE /api/connections/{id}.
func (h *ConnectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.conns.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Test handles POST /api/connections/{id}/test.
// Always responds 200; the body reports reachability.
func (h *ConnectionHandler) Test(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	success := h.conns.TestConnection(r.Context(), id)
	if err := WriteJSON(w, http.StatusOK, map[string]bool{"success": success}); err != nil {
		h.logger.Error("Failed to encode test result", zap.Error(err))
	}
}

// Tables handles GET /api/connections/{id}/tables.
func (h *ConnectionHandler) Tables(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	tables := h.introspect.ListTables(r.Context(), id)
	if err := WriteJSON(w, http.StatusOK, map[string][]string{"tables": tables}); err != nil {
		h.logger.Error("Failed to encode tables", zap.Error(err))
	}
}

// Columns handles GET /api/connections/{id}/tables/{table}/columns.
func (h *ConnectionHandler) Columns(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	columns := h.introspect.ListColumns(r.Context(), id, r.PathValue("table"))
	if err := WriteJSON(w, http.StatusOK, map[string][]string{"columns": columns}); err != nil {
		h.logger.Error("Failed to encode columns", zap.Error(err))
	}
}

// Adapters handles GET /api/adapters.
// Lists the database drivers compiled into this binary.
func (h *ConnectionHandler) Adapters(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, map[string]any{"adapters": datasource.RegisteredAdapters()}); err != nil {
		h.logger.Error("Failed to encode adapters", zap.Error(err))
	}
}

func (h *ConnectionHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid connection id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ConnectionHandler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("connection request failed", zap.String("error", logging.SanitizeError(err)))
	}
	_ = ErrorResponse(w, status, logging.SanitizeError(err))
}
