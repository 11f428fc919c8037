package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account row in PostgreSQL. Profiles live separately in the
// profile row store, keyed by the user's ID.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // argon2id hash, never serialized
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}
