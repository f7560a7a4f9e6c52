package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"salescoach/models"
)

// ErrRecordNotFound is returned when a row is absent or owned by another
// user. Callers cannot distinguish the two cases; lookups fail closed.
var ErrRecordNotFound = errors.New("record not found")

// ErrTranscriptExists is returned when a second transcript would be created
// for the same recording.
var ErrTranscriptExists = errors.New("transcript already exists for recording")

// ErrInvalidTransition is returned when a status update would move a
// recording backwards.
var ErrInvalidTransition = errors.New("invalid recording status transition")

// ErrNoPendingJobs is returned by ClaimNextJob when the queue is empty.
var ErrNoPendingJobs = errors.New("no pending transcription jobs")

// StatusUpdate describes a recording status change. DurationSeconds is only
// honored on the completed transition; ErrorMessage only on error.
type StatusUpdate struct {
	Status          string
	ErrorMessage    *string
	DurationSeconds *int
}

// RecordingStore persists recordings. Every owner-scoped method treats a row
// owned by someone else the same as a missing row.
type RecordingStore interface {
	CreateRecording(ctx context.Context, rec models.Recording) (*models.Recording, error)
	GetRecording(ctx context.Context, ownerID, id uuid.UUID) (*models.Recording, error)
	ListRecordings(ctx context.Context, ownerID uuid.UUID) ([]models.Recording, error)
	RenameRecording(ctx context.Context, ownerID, id uuid.UUID, title string) error
	// UpdateRecordingStatus applies a forward-only status transition. It is
	// not owner-scoped: only the worker calls it, after an owner-scoped load.
	UpdateRecordingStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) error
	// DeleteRecordingCascade removes the recording together with its
	// transcript and notes, dependents first, so no orphan rows remain.
	DeleteRecordingCascade(ctx context.Context, ownerID, id uuid.UUID) error
}

// TranscriptStore persists transcripts. A transcript is created once and
// never edited.
type TranscriptStore interface {
	CreateTranscript(ctx context.Context, tr models.Transcript) (*models.Transcript, error)
	GetTranscriptByRecording(ctx context.Context, recordingID uuid.UUID) (*models.Transcript, error)
}

// NoteStore persists conversation notes, read most-recent-first.
type NoteStore interface {
	CreateNote(ctx context.Context, note models.ConversationNote) (*models.ConversationNote, error)
	ListNotesByRecording(ctx context.Context, recordingID uuid.UUID) ([]models.ConversationNote, error)
}

// JobStore is the durable transcription queue.
type JobStore interface {
	EnqueueJob(ctx context.Context, job models.TranscriptionJob) (*models.TranscriptionJob, error)
	// ClaimNextJob atomically moves the oldest pending job to processing and
	// returns it, or ErrNoPendingJobs.
	ClaimNextJob(ctx context.Context) (*models.TranscriptionJob, error)
	CompleteJob(ctx context.Context, id uuid.UUID) error
	FailJob(ctx context.Context, id uuid.UUID, message string) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.TranscriptionJob, error)
}

// ProfileStore reads user profiles mirrored from the auth platform.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile models.Profile) error
}

// GroupStore persists groups, memberships and messages.
type GroupStore interface {
	CreateGroup(ctx context.Context, group models.Group) (*models.Group, error)
	ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]models.Group, error)
	AddMember(ctx context.Context, member models.GroupMember) error
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	CreateMessage(ctx context.Context, msg models.GroupMessage) (*models.GroupMessage, error)
	ListMessages(ctx context.Context, groupID uuid.UUID) ([]models.GroupMessage, error)
}

// Store aggregates everything the API and the worker need.
type Store interface {
	RecordingStore
	TranscriptStore
	NoteStore
	JobStore
	ProfileStore
	GroupStore
}
