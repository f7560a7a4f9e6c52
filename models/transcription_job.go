package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Transcription job statuses.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// TranscriptionJob represents a durable transcription work item. The API
// enqueues one per transcription request; the worker claims and executes it.
// Keeping jobs in the database means a queued transcription survives a
// process restart.
type TranscriptionJob struct {
	ID           uuid.UUID       `json:"id"`
	RecordingID  uuid.UUID       `json:"recording_id"`
	OwnerID      uuid.UUID       `json:"owner_id"`
	Status       string          `json:"status"`
	ErrorMessage *string         `json:"error_message,omitempty"` // Nullable TEXT
	Metadata     json.RawMessage `json:"metadata,omitempty"`      // Nullable JSONB
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`   // Nullable TIMESTAMPTZ
	CompletedAt  *time.Time      `json:"completed_at,omitempty"` // Nullable TIMESTAMPTZ
}

// JobMetadata carries per-job options the worker needs at execution time.
type JobMetadata struct {
	// APIKeyOverride, when set, replaces the server transcription credential
	// for this job only. It has already been validated by the API.
	APIKeyOverride string `json:"api_key_override,omitempty"`
}
