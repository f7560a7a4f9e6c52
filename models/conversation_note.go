package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ConversationNote is a cached question/answer analysis result tied to a
// recording. Notes are append-only and read most-recent-first.
type ConversationNote struct {
	ID          uuid.UUID       `json:"id"`
	RecordingID uuid.UUID       `json:"recording_id"`
	Question    string          `json:"question"`
	Answer      json.RawMessage `json:"answer"`               // Serialized structured analysis (JSONB)
	Timestamps  json.RawMessage `json:"timestamps,omitempty"` // Nullable JSONB
	CreatedAt   time.Time       `json:"created_at"`
}
