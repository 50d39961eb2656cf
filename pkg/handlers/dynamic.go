package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/logging"
	"github.com/db2api/gateway/pkg/services"
)

// DynamicHandler serves the runtime-declared REST endpoints under
// /api/dynamic/{tableName}.
type DynamicHandler struct {
	dispatcher *services.DispatcherService
	logger     *zap.Logger
}

// NewDynamicHandler creates a new dynamic API handler.
func NewDynamicHandler(dispatcher *services.DispatcherService, logger *zap.Logger) *DynamicHandler {
	return &DynamicHandler{dispatcher: dispatcher, logger: logger}
}

// RegisterRoutes registers the dynamic routes on the given mux, wrapped in
// the provided middleware chain.
func (h *DynamicHandler) RegisterRoutes(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	mux.Handle("GET /api/dynamic/{tableName}", wrap(http.HandlerFunc(h.Get)))
	mux.Handle("PUT /api/dynamic/{tableName}", wrap(http.HandlerFunc(h.Put)))
	mux.Handle("DELETE /api/dynamic/{tableName}", wrap(http.HandlerFunc(h.Delete)))
}

// Get handles GET /api/dynamic/{tableName}.
// Returns all rows of the table as an array of objects.
func (h *DynamicHandler) Get(w http.ResponseWriter, r *http.Request) {
	tableName := r.PathValue("tableName")

	result, err := h.dispatcher.Get(r.Context(), tableName)
	if err != nil {
		h.writeError(w, tableName, err)
		return
	}

	rows := result.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	if err := WriteJSON(w, http.StatusOK, rows); err != nil {
		h.logger.Error("Failed to encode rows", zap.Error(err))
	}
}

// Put handles PUT /api/dynamic/{tableName}.
// The body is a flat JSON object inserted as one row.
func (h *DynamicHandler) Put(w http.ResponseWriter, r *http.Request) {
	tableName := r.PathValue("tableName")

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	affected, err := h.dispatcher.Put(r.Context(), tableName, payload)
	if err != nil {
		h.writeError(w, tableName, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]int64{"rowsAffected": affected}); err != nil {
		h.logger.Error("Failed to encode insert result", zap.Error(err))
	}
}

// Delete handles DELETE /api/dynamic/{tableName}?col=val&...
// Query parameters become equality conditions; at least one is required.
func (h *DynamicHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tableName := r.PathValue("tableName")

	conditions := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			conditions[key] = values[0]
		}
	}

	affected, err := h.dispatcher.Delete(r.Context(), tableName, conditions)
	if err != nil {
		h.writeError(w, tableName, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]int64{"rowsAffected": affected}); err != nil {
		h.logger.Error("Failed to encode delete result", zap.Error(err))
	}
}

func (h *DynamicHandler) writeError(w http.ResponseWriter, tableName string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("dynamic request failed",
			zap.String("table", tableName),
			zap.String("error", logging.SanitizeError(err)),
		)
	}
	_ = ErrorResponse(w, status, logging.SanitizeError(err))
}
