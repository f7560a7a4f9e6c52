package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"salescoach/models"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store implementation. It backs the test suite
// and doubles as a development backend when no database is configured.
type MemoryStore struct {
	mu          sync.Mutex
	recordings  map[uuid.UUID]models.Recording
	transcripts map[uuid.UUID]models.Transcript // keyed by recording ID
	notes       map[uuid.UUID][]models.ConversationNote
	jobs        map[uuid.UUID]models.TranscriptionJob
	profiles    map[uuid.UUID]models.Profile
	groups      map[uuid.UUID]models.Group
	members     map[uuid.UUID][]models.GroupMember
	messages    map[uuid.UUID][]models.GroupMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recordings:  make(map[uuid.UUID]models.Recording),
		transcripts: make(map[uuid.UUID]models.Transcript),
		notes:       make(map[uuid.UUID][]models.ConversationNote),
		jobs:        make(map[uuid.UUID]models.TranscriptionJob),
		profiles:    make(map[uuid.UUID]models.Profile),
		groups:      make(map[uuid.UUID]models.Group),
		members:     make(map[uuid.UUID][]models.GroupMember),
		messages:    make(map[uuid.UUID][]models.GroupMessage),
	}
}

func (s *MemoryStore) CreateRecording(ctx context.Context, rec models.Recording) (*models.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.UpdatedAt = rec.CreatedAt
	s.recordings[rec.ID] = rec
	return &rec, nil
}

func (s *MemoryStore) GetRecording(ctx context.Context, ownerID, id uuid.UUID) (*models.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recordings[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, ErrRecordNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) ListRecordings(ctx context.Context, ownerID uuid.UUID) ([]models.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []models.Recording
	for _, rec := range s.recordings {
		if rec.OwnerID == ownerID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	return recs, nil
}

func (s *MemoryStore) RenameRecording(ctx context.Context, ownerID, id uuid.UUID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recordings[id]
	if !ok || rec.OwnerID != ownerID {
		return ErrRecordNotFound
	}
	rec.Title = title
	rec.UpdatedAt = time.Now()
	s.recordings[id] = rec
	return nil
}

func (s *MemoryStore) UpdateRecordingStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recordings[id]
	if !ok {
		return ErrRecordNotFound
	}
	if !models.ValidStatusTransition(rec.Status, update.Status) {
		return ErrInvalidTransition
	}
	rec.Status = update.Status
	if update.ErrorMessage != nil {
		rec.ErrorMessage = update.ErrorMessage
	}
	if update.DurationSeconds != nil {
		rec.DurationSeconds = update.DurationSeconds
	}
	rec.UpdatedAt = time.Now()
	s.recordings[id] = rec
	return nil
}

func (s *MemoryStore) DeleteRecordingCascade(ctx context.Context, ownerID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recordings[id]
	if !ok || rec.OwnerID != ownerID {
		return ErrRecordNotFound
	}
	delete(s.notes, id)
	delete(s.transcripts, id)
	delete(s.recordings, id)
	return nil
}

func (s *MemoryStore) CreateTranscript(ctx context.Context, tr models.Transcript) (*models.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transcripts[tr.RecordingID]; exists {
		return nil, ErrTranscriptExists
	}
	if tr.ID == uuid.Nil {
		tr.ID = uuid.New()
	}
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = time.Now()
	}
	s.transcripts[tr.RecordingID] = tr
	return &tr, nil
}

func (s *MemoryStore) GetTranscriptByRecording(ctx context.Context, recordingID uuid.UUID) (*models.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.transcripts[recordingID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &tr, nil
}

func (s *MemoryStore) CreateNote(ctx context.Context, note models.ConversationNote) (*models.ConversationNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now()
	}
	s.notes[note.RecordingID] = append(s.notes[note.RecordingID], note)
	return &note, nil
}

func (s *MemoryStore) ListNotesByRecording(ctx context.Context, recordingID uuid.UUID) ([]models.ConversationNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := append([]models.ConversationNote(nil), s.notes[recordingID]...)
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].CreatedAt.After(notes[j].CreatedAt) })
	return notes, nil
}

func (s *MemoryStore) EnqueueJob(ctx context.Context, job models.TranscriptionJob) (*models.TranscriptionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	job.UpdatedAt = job.CreatedAt
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	s.jobs[job.ID] = job
	return &job, nil
}

func (s *MemoryStore) ClaimNextJob(ctx context.Context) (*models.TranscriptionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *models.TranscriptionJob
	for id := range s.jobs {
		job := s.jobs[id]
		if job.Status != models.JobStatusPending {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			j := job
			oldest = &j
		}
	}
	if oldest == nil {
		return nil, ErrNoPendingJobs
	}
	now := time.Now()
	oldest.Status = models.JobStatusProcessing
	oldest.StartedAt = &now
	oldest.UpdatedAt = now
	s.jobs[oldest.ID] = *oldest
	return oldest, nil
}

func (s *MemoryStore) CompleteJob(ctx context.Context, id uuid.UUID) error {
	return s.finishJob(id, models.JobStatusCompleted, "")
}

func (s *MemoryStore) FailJob(ctx context.Context, id uuid.UUID, message string) error {
	return s.finishJob(id, models.JobStatusFailed, message)
}

func (s *MemoryStore) finishJob(id uuid.UUID, status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ErrRecordNotFound
	}
	now := time.Now()
	job.Status = status
	job.CompletedAt = &now
	job.UpdatedAt = now
	if message != "" {
		job.ErrorMessage = &message
	}
	s.jobs[id] = job
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, id uuid.UUID) (*models.TranscriptionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &job, nil
}

func (s *MemoryStore) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &profile, nil
}

func (s *MemoryStore) UpsertProfile(ctx context.Context, profile models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}
	s.profiles[profile.ID] = profile
	return nil
}

func (s *MemoryStore) CreateGroup(ctx context.Context, group models.Group) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now()
	}
	s.groups[group.ID] = group
	s.members[group.ID] = append(s.members[group.ID], models.GroupMember{
		GroupID:  group.ID,
		UserID:   group.OwnerID,
		Role:     "owner",
		JoinedAt: group.CreatedAt,
	})
	return &group, nil
}

func (s *MemoryStore) ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var groups []models.Group
	for groupID, members := range s.members {
		for _, m := range members {
			if m.UserID == userID {
				groups = append(groups, s.groups[groupID])
				break
			}
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.After(groups[j].CreatedAt) })
	return groups, nil
}

func (s *MemoryStore) AddMember(ctx context.Context, member models.GroupMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members[member.GroupID] {
		if m.UserID == member.UserID {
			return nil
		}
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	s.members[member.GroupID] = append(s.members[member.GroupID], member)
	return nil
}

func (s *MemoryStore) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members[groupID] {
		if m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreateMessage(ctx context.Context, msg models.GroupMessage) (*models.GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	s.messages[msg.GroupID] = append(s.messages[msg.GroupID], msg)
	return &msg, nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, groupID uuid.UUID) ([]models.GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := append([]models.GroupMessage(nil), s.messages[groupID]...)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs, nil
}
