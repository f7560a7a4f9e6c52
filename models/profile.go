package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile mirrors the auth platform's user record for display purposes.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name,omitempty"` // Nullable TEXT
	CreatedAt time.Time `json:"created_at"`
}
