package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// API types an ApiDefinition can declare.
const (
	APITypeREST    = "REST"
	APITypeGraphQL = "GraphQL"
)

// Operations that can appear in an APIDefinition allow-list.
const (
	OpGet    = "GET"
	OpPut    = "PUT"
	OpDelete = "DELETE"
)

// APIDefinition declares that a table reachable through a connection is
// exposed as a REST or GraphQL endpoint. AllowedOperations is a
// comma-encoded subset of GET,PUT,DELETE. IncludedColumns is an optional
// comma-encoded column allow-list; empty means all columns.
//
// The table name is not validated at save time - only at first use against
// the live schema. At most one definition per (table, API type) pair is
// meaningful for lookup; first match wins.
type APIDefinition struct {
	ID                uuid.UUID `json:"id"`
	TableName         string    `json:"table_name"`
	APIType           string    `json:"api_type"`
	AllowedOperations string    `json:"allowed_operations"`
	IncludedColumns   string    `json:"included_columns"`
	ConnectionID      uuid.UUID `json:"connection_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AllowsOperation reports whether op is in the comma-encoded allow-list.
// Matching is case-insensitive and whitespace-tolerant.
func (d *APIDefinition) AllowsOperation(op string) bool {
	for _, allowed := range strings.Split(d.AllowedOperations, ",") {
		if strings.EqualFold(strings.TrimSpace(allowed), op) {
			return true
		}
	}
	return false
}

// Columns returns the included-columns allow-list as a slice, or nil when
// the definition exposes all columns.
func (d *APIDefinition) Columns() []string {
	if strings.TrimSpace(d.IncludedColumns) == "" {
		return nil
	}
	parts := strings.Split(d.IncludedColumns, ",")
	columns := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			columns = append(columns, trimmed)
		}
	}
	return columns
}
