package models

import (
	"time"

	"github.com/google/uuid"
)

// Transcript represents the time-aligned text derived from a recording's
// audio. One transcript exists per recording; it is immutable after creation.
type Transcript struct {
	ID           uuid.UUID           `json:"id"`
	RecordingID  uuid.UUID           `json:"recording_id"`
	Text         string              `json:"text"`
	Segments     []TranscriptSegment `json:"segments"` // JSONB, time-ascending
	SpeakerCount int                 `json:"speaker_count"`
	CreatedAt    time.Time           `json:"created_at"`
}

// TranscriptSegment is a time-bounded span of transcript text with an
// assigned speaker label.
type TranscriptSegment struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Text      string  `json:"text"`
	Speaker   string  `json:"speaker"`
}
