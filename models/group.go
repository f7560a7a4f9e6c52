package models

import (
	"time"

	"github.com/google/uuid"
)

// Group represents a team chat a recording can be shared into.
type Group struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Group membership roles.
const (
	GroupRoleOwner  = "owner"
	GroupRoleMember = "member"
)

// GroupMember links a user to a group.
type GroupMember struct {
	GroupID  uuid.UUID `json:"group_id"`
	UserID   uuid.UUID `json:"user_id"`
	Role     string    `json:"role"` // "owner" or "member"
	JoinedAt time.Time `json:"joined_at"`
}

// GroupMessage is a message in a group chat. A message may reference a
// recording, which is how recordings are shared with a team.
type GroupMessage struct {
	ID          uuid.UUID  `json:"id"`
	GroupID     uuid.UUID  `json:"group_id"`
	SenderID    uuid.UUID  `json:"sender_id"`
	Content     *string    `json:"content,omitempty"`      // Nullable TEXT
	RecordingID *uuid.UUID `json:"recording_id,omitempty"` // Nullable foreign key
	CreatedAt   time.Time  `json:"created_at"`
}
