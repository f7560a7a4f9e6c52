package transcriber

import (
	"context"
	"fmt"
	"io"
)

// Segment is one time-aligned span returned by the speech API.
type Segment struct {
	StartTime float64
	EndTime   float64
	Text      string
}

// Result is a full transcription: text, time-aligned segments and the
// reported audio duration in seconds.
type Result struct {
	Text     string
	Segments []Segment
	Duration float64
}

// Transcriber submits audio bytes to the speech collaborator.
type Transcriber interface {
	Transcribe(ctx context.Context, filename, contentType string, audio io.Reader) (*Result, error)
}

// CollaboratorError carries the upstream HTTP status and message so callers
// can record it on the recording.
type CollaboratorError struct {
	StatusCode int
	Message    string
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("transcription collaborator returned status %d: %s", e.StatusCode, e.Message)
}
