// Package diarize assigns speaker labels to transcript segments.
package diarize

import (
	"salescoach/internal/transcriber"
	"salescoach/models"
)

// NaivePlaceholderSpeakerAssignment labels segments by alternating
// "Speaker 1" / "Speaker 2" on segment index. This is a stand-in, not a real
// speaker-identification algorithm: a sales call is usually two people taking
// turns, which is the only case the alternation resembles.
func NaivePlaceholderSpeakerAssignment(segments []transcriber.Segment) []models.TranscriptSegment {
	out := make([]models.TranscriptSegment, 0, len(segments))
	for i, seg := range segments {
		speaker := "Speaker 1"
		if i%2 == 1 {
			speaker = "Speaker 2"
		}
		out = append(out, models.TranscriptSegment{
			StartTime: seg.StartTime,
			EndTime:   seg.EndTime,
			Text:      seg.Text,
			Speaker:   speaker,
		})
	}
	return out
}

// SpeakerCount reports how many distinct placeholder labels the assignment
// produced.
func SpeakerCount(segments []models.TranscriptSegment) int {
	seen := make(map[string]struct{}, 2)
	for _, seg := range segments {
		seen[seg.Speaker] = struct{}{}
	}
	return len(seen)
}
