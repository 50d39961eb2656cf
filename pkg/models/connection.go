// Package models defines the metadata entities the gateway stores.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Connection represents a stored descriptor for an external relational
// database. Password holds ciphertext at rest; it is decrypted only
// transiently when a resource is built or a connection is tested.
type Connection struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	Password  string    `json:"-"` // encrypted, never serialized
	Driver    string    `json:"driver"` // "postgres" or "sqlserver"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
