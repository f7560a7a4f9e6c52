package coach

import (
	"context"
	"fmt"
	"strings"

	"salescoach/models"
)

// Analysis is the structured coaching feedback returned to the client and
// cached in a conversation note.
type Analysis struct {
	Summary           string              `json:"summary"`
	Objections        []string            `json:"objections"`
	Improvements      []string            `json:"improvements"`
	Timestamps        []AnalysisTimestamp `json:"timestamps"`
	FollowUpTemplates []string            `json:"followUpTemplates"`
	Answer            string              `json:"answer"`
}

// AnalysisTimestamp references a moment in the transcript.
type AnalysisTimestamp struct {
	Time    string `json:"time"` // "HH:MM:SS"
	Text    string `json:"text"`
	Context string `json:"context"`
}

// Coach answers a free-text question about a finished transcript.
type Coach interface {
	Analyze(ctx context.Context, transcript, question string) (*Analysis, error)
}

// FallbackAnalysis wraps unparseable collaborator output: the raw text
// becomes the answer and every structured field is empty. The request still
// succeeds.
func FallbackAnalysis(raw string) *Analysis {
	return &Analysis{
		Summary:           "",
		Objections:        []string{},
		Improvements:      []string{},
		Timestamps:        []AnalysisTimestamp{},
		FollowUpTemplates: []string{},
		Answer:            raw,
	}
}

// normalize replaces nil slices so the JSON the client sees always carries
// arrays, matching the fallback shape.
func (a *Analysis) normalize() {
	if a.Objections == nil {
		a.Objections = []string{}
	}
	if a.Improvements == nil {
		a.Improvements = []string{}
	}
	if a.Timestamps == nil {
		a.Timestamps = []AnalysisTimestamp{}
	}
	if a.FollowUpTemplates == nil {
		a.FollowUpTemplates = []string{}
	}
}

// FormatTranscript renders segments as timestamped speaker lines, the form
// the coaching prompt expects.
func FormatTranscript(segments []models.TranscriptSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&b, "[%s] %s: %s\n", formatClock(seg.StartTime), seg.Speaker, strings.TrimSpace(seg.Text))
	}
	return b.String()
}

func formatClock(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
