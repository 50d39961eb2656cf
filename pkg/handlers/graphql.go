package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/graphqlapi"
)

// GraphQLRequest is the standard POST body for GraphQL over HTTP.
type GraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// GraphQLHandler serves the generated schema at /graphql.
type GraphQLHandler struct {
	builder *graphqlapi.SchemaBuilder
	logger  *zap.Logger
}

// NewGraphQLHandler creates a new GraphQL handler.
func NewGraphQLHandler(builder *graphqlapi.SchemaBuilder, logger *zap.Logger) *GraphQLHandler {
	return &GraphQLHandler{builder: builder, logger: logger}
}

// RegisterRoutes registers the GraphQL endpoint on the given mux, wrapped
// in the provided middleware chain.
func (h *GraphQLHandler) RegisterRoutes(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	mux.Handle("POST /graphql", wrap(http.HandlerFunc(h.Query)))
}

// Query handles POST /graphql. Execution errors travel inside the GraphQL
// result body with a 200 status, per convention.
func (h *GraphQLHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req GraphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "request body must be a JSON object with a query field")
		return
	}
	if req.Query == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "query is required")
		return
	}

	result := h.builder.Execute(r.Context(), req.Query, req.Variables)
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode graphql result", zap.Error(err))
	}
}
