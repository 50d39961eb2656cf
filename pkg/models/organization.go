package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization statuses.
const (
	OrgStatusActive    = "Active"
	OrgStatusInactive  = "Inactive"
	OrgStatusSuspended = "Suspended"
)

// Organization groups API clients. Deleting an organization cascades to its
// clients.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidOrgStatus reports whether s is one of the known organization statuses.
func ValidOrgStatus(s string) bool {
	return s == OrgStatusActive || s == OrgStatusInactive || s == OrgStatusSuspended
}

// Client is a machine consumer of the dynamic APIs. ClientID is an opaque
// generated token; ClientSecret holds ciphertext at rest. Both are generated
// once at creation and never regenerated.
type Client struct {
	ID             uuid.UUID `json:"id"`
	ClientID       string    `json:"client_id"`
	ClientSecret   string    `json:"-"` // encrypted, never serialized
	OrganizationID uuid.UUID `json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
}
