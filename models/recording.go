package models

import (
	"time"

	"github.com/google/uuid"
)

// Recording statuses. Transitions only move forward; "error" is terminal.
const (
	RecordingStatusUploaded     = "uploaded"
	RecordingStatusTranscribing = "transcribing"
	RecordingStatusCompleted    = "completed"
	RecordingStatusError        = "error"
)

// Recording represents the structure of a recording in the database.
// It is the owning record for one uploaded audio file and its processing status.
type Recording struct {
	ID              uuid.UUID `json:"id"`
	OwnerID         uuid.UUID `json:"owner_id"`
	Title           string    `json:"title"`
	AudioURL        *string   `json:"audio_url,omitempty"` // Nullable TEXT
	AudioFilename   string    `json:"audio_filename"`      // Storage key within the bucket
	FileSizeBytes   int64     `json:"file_size_bytes"`
	DurationSeconds *int      `json:"duration_seconds,omitempty"` // Set once, at the completed transition
	Status          string    `json:"status"`
	ErrorMessage    *string   `json:"error_message,omitempty"` // Nullable TEXT
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CanTransitionTo reports whether moving from the recording's current status
// to next is a forward transition.
func (r *Recording) CanTransitionTo(next string) bool {
	return ValidStatusTransition(r.Status, next)
}

// ValidStatusTransition reports whether from -> to is allowed. The sequence is
// uploaded -> transcribing -> completed, with error reachable from uploaded
// and transcribing. A recording in "error" may be retried, which re-enters
// transcribing.
func ValidStatusTransition(from, to string) bool {
	switch from {
	case RecordingStatusUploaded:
		return to == RecordingStatusTranscribing || to == RecordingStatusError
	case RecordingStatusTranscribing:
		return to == RecordingStatusCompleted || to == RecordingStatusError
	case RecordingStatusError:
		return to == RecordingStatusTranscribing
	default:
		return false
	}
}
