package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	postgrest "github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"salescoach/models"
)

const (
	recordingsTable  = "recordings"
	transcriptsTable = "transcripts"
	notesTable       = "conversation_notes"
	jobsTable        = "transcription_jobs"
	groupsTable      = "groups"
	membersTable     = "group_members"
	messagesTable    = "group_messages"
	profilesTable    = "profiles"
)

var _ Store = (*SupabaseStore)(nil)

// SupabaseStore implements Store on top of the Supabase PostgREST API.
// Per-row authorization is enforced here by owner filters on every query,
// in addition to the platform's row-level security.
type SupabaseStore struct {
	client *supa.Client
}

func NewSupabaseStore(client *supa.Client) *SupabaseStore {
	return &SupabaseStore{client: client}
}

func (s *SupabaseStore) CreateRecording(ctx context.Context, rec models.Recording) (*models.Recording, error) {
	var results []models.Recording
	_, err := s.client.From(recordingsTable).
		Insert(rec, false, "", "representation", "").
		ExecuteTo(&results)
	if err != nil {
		return nil, fmt.Errorf("insert recording: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("insert recording: no row returned")
	}
	return &results[0], nil
}

func (s *SupabaseStore) GetRecording(ctx context.Context, ownerID, id uuid.UUID) (*models.Recording, error) {
	var rec models.Recording
	_, err := s.client.From(recordingsTable).
		Select("*", "exact", false).
		Eq("id", id.String()).
		Eq("owner_id", ownerID.String()).
		Single().
		ExecuteTo(&rec)
	if err != nil {
		return nil, ErrRecordNotFound
	}
	return &rec, nil
}

func (s *SupabaseStore) ListRecordings(ctx context.Context, ownerID uuid.UUID) ([]models.Recording, error) {
	var recs []models.Recording
	_, err := s.client.From(recordingsTable).
		Select("*", "", false).
		Eq("owner_id", ownerID.String()).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&recs)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	return recs, nil
}

func (s *SupabaseStore) RenameRecording(ctx context.Context, ownerID, id uuid.UUID, title string) error {
	updates := map[string]interface{}{
		"title":      title,
		"updated_at": time.Now(),
	}
	_, count, err := s.client.From(recordingsTable).
		Update(updates, "", "exact").
		Eq("id", id.String()).
		Eq("owner_id", ownerID.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("rename recording: %w", err)
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// UpdateRecordingStatus guards the transition server-side by filtering on the
// set of statuses the target is reachable from, so a concurrent update that
// already moved the row forward makes this a no-op error instead of a
// regression.
func (s *SupabaseStore) UpdateRecordingStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) error {
	from := validPredecessors(update.Status)
	if len(from) == 0 {
		return ErrInvalidTransition
	}

	updates := map[string]interface{}{
		"status":     update.Status,
		"updated_at": time.Now(),
	}
	if update.ErrorMessage != nil {
		updates["error_message"] = *update.ErrorMessage
	}
	if update.DurationSeconds != nil {
		updates["duration_seconds"] = *update.DurationSeconds
	}

	_, count, err := s.client.From(recordingsTable).
		Update(updates, "", "exact").
		Eq("id", id.String()).
		In("status", from).
		Execute()
	if err != nil {
		return fmt.Errorf("update recording status: %w", err)
	}
	if count == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func validPredecessors(to string) []string {
	var from []string
	for _, status := range []string{
		models.RecordingStatusUploaded,
		models.RecordingStatusTranscribing,
		models.RecordingStatusCompleted,
		models.RecordingStatusError,
	} {
		if models.ValidStatusTransition(status, to) {
			from = append(from, status)
		}
	}
	return from
}

// DeleteRecordingCascade deletes dependents before the owning row. PostgREST
// offers no cross-table transaction, so a crash mid-way can leave the
// recording behind with its dependents already gone; re-running the delete
// converges.
func (s *SupabaseStore) DeleteRecordingCascade(ctx context.Context, ownerID, id uuid.UUID) error {
	if _, err := s.GetRecording(ctx, ownerID, id); err != nil {
		return err
	}

	if _, _, err := s.client.From(notesTable).
		Delete("", "").
		Eq("recording_id", id.String()).
		Execute(); err != nil {
		return fmt.Errorf("delete notes for recording %s: %w", id, err)
	}
	if _, _, err := s.client.From(transcriptsTable).
		Delete("", "").
		Eq("recording_id", id.String()).
		Execute(); err != nil {
		return fmt.Errorf("delete transcript for recording %s: %w", id, err)
	}
	_, count, err := s.client.From(recordingsTable).
		Delete("", "exact").
		Eq("id", id.String()).
		Eq("owner_id", ownerID.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("delete recording %s: %w", id, err)
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *SupabaseStore) CreateTranscript(ctx context.Context, tr models.Transcript) (*models.Transcript, error) {
	if existing, err := s.GetTranscriptByRecording(ctx, tr.RecordingID); err == nil && existing != nil {
		return nil, ErrTranscriptExists
	}

	var results []models.Transcript
	_, err := s.client.From(transcriptsTable).
		Insert(tr, false, "", "representation", "").
		ExecuteTo(&results)
	if err != nil {
		return nil, fmt.Errorf("insert transcript: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("insert transcript: no row returned")
	}
	return &results[0], nil
}

func (s *SupabaseStore) GetTranscriptByRecording(ctx context.Context, recordingID uuid.UUID) (*models.Transcript, error) {
	var tr models.Transcript
	_, err := s.client.From(transcriptsTable).
		Select("*", "exact", false).
		Eq("recording_id", recordingID.String()).
		Single().
		ExecuteTo(&tr)
	if err != nil {
		return nil, ErrRecordNotFound
	}
	return &tr, nil
}

func (s *SupabaseStore) CreateNote(ctx context.Context, note models.ConversationNote) (*models.ConversationNote, error) {
	var results []models.ConversationNote
	_, err := s.client.From(notesTable).
		Insert(note, false, "", "representation", "").
		ExecuteTo(&results)
	if err != nil {
		return nil, fmt.Errorf("insert conversation note: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("insert conversation note: no row returned")
	}
	return &results[0], nil
}

func (s *SupabaseStore) ListNotesByRecording(ctx context.Context, recordingID uuid.UUID) ([]models.ConversationNote, error) {
	var notes []models.ConversationNote
	_, err := s.client.From(notesTable).
		Select("*", "", false).
		Eq("recording_id", recordingID.String()).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&notes)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

func (s *SupabaseStore) EnqueueJob(ctx context.Context, job models.TranscriptionJob) (*models.TranscriptionJob, error) {
	var results []models.TranscriptionJob
	_, err := s.client.From(jobsTable).
		Insert(job, false, "", "representation", "").
		ExecuteTo(&results)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("enqueue job: no row returned")
	}
	return &results[0], nil
}

// ClaimNextJob selects the oldest pending job and flips it to processing with
// a conditional update. If another worker won the race the update matches
// zero rows and we try the next candidate.
func (s *SupabaseStore) ClaimNextJob(ctx context.Context) (*models.TranscriptionJob, error) {
	for attempt := 0; attempt < 3; attempt++ {
		var jobs []models.TranscriptionJob
		_, err := s.client.From(jobsTable).
			Select("*", "", false).
			Eq("status", models.JobStatusPending).
			Order("created_at", &postgrest.OrderOpts{Ascending: true}).
			Limit(1, "").
			ExecuteTo(&jobs)
		if err != nil {
			return nil, fmt.Errorf("poll jobs: %w", err)
		}
		if len(jobs) == 0 {
			return nil, ErrNoPendingJobs
		}

		job := jobs[0]
		now := time.Now()
		updates := map[string]interface{}{
			"status":     models.JobStatusProcessing,
			"started_at": now,
			"updated_at": now,
		}
		_, count, err := s.client.From(jobsTable).
			Update(updates, "", "exact").
			Eq("id", job.ID.String()).
			Eq("status", models.JobStatusPending).
			Execute()
		if err != nil {
			return nil, fmt.Errorf("claim job %s: %w", job.ID, err)
		}
		if count == 0 {
			continue // lost the race, another worker claimed it
		}
		job.Status = models.JobStatusProcessing
		job.StartedAt = &now
		return &job, nil
	}
	return nil, ErrNoPendingJobs
}

func (s *SupabaseStore) CompleteJob(ctx context.Context, id uuid.UUID) error {
	return s.finishJob(ctx, id, models.JobStatusCompleted, "")
}

func (s *SupabaseStore) FailJob(ctx context.Context, id uuid.UUID, message string) error {
	return s.finishJob(ctx, id, models.JobStatusFailed, message)
}

func (s *SupabaseStore) finishJob(ctx context.Context, id uuid.UUID, status, message string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       status,
		"updated_at":   now,
		"completed_at": now,
	}
	if message != "" {
		updates["error_message"] = message
	}
	_, count, err := s.client.From(jobsTable).
		Update(updates, "", "exact").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("finish job %s: %w", id, err)
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *SupabaseStore) GetJob(ctx context.Context, id uuid.UUID) (*models.TranscriptionJob, error) {
	var job models.TranscriptionJob
	_, err := s.client.From(jobsTable).
		Select("*", "exact", false).
		Eq("id", id.String()).
		Single().
		ExecuteTo(&job)
	if err != nil {
		return nil, ErrRecordNotFound
	}
	return &job, nil
}

func (s *SupabaseStore) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	_, err := s.client.From(profilesTable).
		Select("*", "exact", false).
		Eq("id", userID.String()).
		Single().
		ExecuteTo(&profile)
	if err != nil {
		return nil, ErrRecordNotFound
	}
	return &profile, nil
}

func (s *SupabaseStore) UpsertProfile(ctx context.Context, profile models.Profile) error {
	_, err := s.client.From(profilesTable).
		Insert(profile, true, "id", "representation", "").
		ExecuteTo(&[]models.Profile{})
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *SupabaseStore) CreateGroup(ctx context.Context, group models.Group) (*models.Group, error) {
	var results []models.Group
	_, err := s.client.From(groupsTable).
		Insert(group, false, "", "representation", "").
		ExecuteTo(&results)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("insert group: no row returned")
	}
	return &results[0], nil
}

func (s *SupabaseStore) ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]models.Group, error) {
	var memberships []models.GroupMember
	_, err := s.client.From(membersTable).
		Select("*", "", false).
		Eq("user_id", userID.String()).
		ExecuteTo(&memberships)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	if len(memberships) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.GroupID.String())
	}
	var groups []models.Group
	_, err = s.client.From(groupsTable).
		Select("*", "", false).
		In("id", ids).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&groups)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

func (s *SupabaseStore) AddMember(ctx context.Context, member models.GroupMember) error {
	_, _, err := s.client.From(membersTable).
		Insert(member, true, "group_id,user_id", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

func (s *SupabaseStore) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	body, _, err := s.client.From(membersTable).
		Select("group_id", "", false).
		Eq("group_id", groupID.String()).
		Eq("user_id", userID.String()).
		Execute()
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return len(rows) > 0, nil
}

func (s *SupabaseStore) CreateMessage(ctx context.Context, msg models.GroupMessage) (*models.GroupMessage, error) {
	var results []models.GroupMessage
	_, err := s.client.From(messagesTable).
		Insert(msg, false, "", "representation", "").
		ExecuteTo(&results)
	if err != nil {
		return nil, fmt.Errorf("insert group message: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("insert group message: no row returned")
	}
	return &results[0], nil
}

func (s *SupabaseStore) ListMessages(ctx context.Context, groupID uuid.UUID) ([]models.GroupMessage, error) {
	var msgs []models.GroupMessage
	_, err := s.client.From(messagesTable).
		Select("*", "", false).
		Eq("group_id", groupID.String()).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&msgs)
	if err != nil {
		return nil, fmt.Errorf("list group messages: %w", err)
	}
	return msgs, nil
}
