// Package jobs contains the executable job types run by the worker pool.
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"mime"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"salescoach/internal/diarize"
	"salescoach/internal/storage"
	"salescoach/internal/store"
	"salescoach/internal/transcriber"
	"salescoach/models"
)

// Store is the slice of the data layer a transcription job needs.
type Store interface {
	GetRecording(ctx context.Context, ownerID, id uuid.UUID) (*models.Recording, error)
	UpdateRecordingStatus(ctx context.Context, id uuid.UUID, update store.StatusUpdate) error
	CreateTranscript(ctx context.Context, tr models.Transcript) (*models.Transcript, error)
	CompleteJob(ctx context.Context, id uuid.UUID) error
	FailJob(ctx context.Context, id uuid.UUID, message string) error
}

// TranscriberFactory builds a transcriber for a per-job credential override.
type TranscriberFactory func(apiKey string) transcriber.Transcriber

// Deps are the collaborators shared by all transcription jobs.
type Deps struct {
	Store               Store
	Storage             storage.ObjectStorage
	Transcriber         transcriber.Transcriber
	OverrideTranscriber TranscriberFactory // optional
	Log                 *logrus.Logger
	Timeout             time.Duration
}

// TranscribeRecordingJob runs one queued transcription end to end:
// load the recording, mark it transcribing, fetch the audio, call the speech
// collaborator, persist the transcript and complete the recording. Any
// failure after the transcribing transition lands the recording in "error"
// with the failure message; there is exactly one attempt per job.
type TranscribeRecordingJob struct {
	job  models.TranscriptionJob
	deps Deps
}

func NewTranscribeRecordingJob(job models.TranscriptionJob, deps Deps) *TranscribeRecordingJob {
	if deps.Timeout <= 0 {
		deps.Timeout = 15 * time.Minute
	}
	return &TranscribeRecordingJob{job: job, deps: deps}
}

func (j *TranscribeRecordingJob) ID() string { return j.job.ID.String() }

func (j *TranscribeRecordingJob) Execute() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.deps.Timeout)
	defer cancel()

	log := j.deps.Log.WithFields(logrus.Fields{
		"job_id":       j.job.ID,
		"recording_id": j.job.RecordingID,
	})

	rec, err := j.deps.Store.GetRecording(ctx, j.job.OwnerID, j.job.RecordingID)
	if err != nil {
		// Absent or owned by someone else: fail closed, no mutation.
		_ = j.deps.Store.FailJob(ctx, j.job.ID, "recording not found")
		return fmt.Errorf("recording %s not found for owner %s", j.job.RecordingID, j.job.OwnerID)
	}

	// Guard against re-running a recording that is already transcribing or
	// done; a second run would create a second transcript.
	if rec.Status != models.RecordingStatusUploaded && rec.Status != models.RecordingStatusError {
		log.WithField("status", rec.Status).Warn("skipping job, recording not eligible for transcription")
		_ = j.deps.Store.FailJob(ctx, j.job.ID, fmt.Sprintf("recording in status %q cannot be transcribed", rec.Status))
		return nil
	}

	if err := j.deps.Store.UpdateRecordingStatus(ctx, rec.ID, store.StatusUpdate{Status: models.RecordingStatusTranscribing}); err != nil {
		// A concurrent job won the transition; this one stands down.
		log.WithError(err).Warn("skipping job, lost transcribing transition")
		_ = j.deps.Store.FailJob(ctx, j.job.ID, "concurrent transcription already in progress")
		return nil
	}

	audio, err := j.deps.Storage.Download(ctx, rec.AudioFilename)
	if err != nil {
		return j.fail(ctx, log, rec.ID, fmt.Sprintf("failed to download audio: %v", err))
	}

	result, err := j.transcriberFor(log).Transcribe(ctx, filepath.Base(rec.AudioFilename), contentTypeFor(rec.AudioFilename), bytes.NewReader(audio))
	if err != nil {
		return j.fail(ctx, log, rec.ID, err.Error())
	}

	segments := diarize.NaivePlaceholderSpeakerAssignment(result.Segments)
	transcript := models.Transcript{
		RecordingID:  rec.ID,
		Text:         result.Text,
		Segments:     segments,
		SpeakerCount: diarize.SpeakerCount(segments),
	}
	if _, err := j.deps.Store.CreateTranscript(ctx, transcript); err != nil {
		return j.fail(ctx, log, rec.ID, fmt.Sprintf("failed to persist transcript: %v", err))
	}

	duration := int(math.Round(result.Duration))
	if err := j.deps.Store.UpdateRecordingStatus(ctx, rec.ID, store.StatusUpdate{
		Status:          models.RecordingStatusCompleted,
		DurationSeconds: &duration,
	}); err != nil {
		return j.fail(ctx, log, rec.ID, fmt.Sprintf("failed to mark recording completed: %v", err))
	}

	if err := j.deps.Store.CompleteJob(ctx, j.job.ID); err != nil {
		log.WithError(err).Error("failed to mark job completed")
	}
	log.WithField("duration_seconds", duration).Info("transcription completed")
	return nil
}

// fail records the error on the recording and the job. One attempt only, no
// retry.
func (j *TranscribeRecordingJob) fail(ctx context.Context, log *logrus.Entry, recordingID uuid.UUID, message string) error {
	log.WithField("error", message).Error("transcription failed")
	if err := j.deps.Store.UpdateRecordingStatus(ctx, recordingID, store.StatusUpdate{
		Status:       models.RecordingStatusError,
		ErrorMessage: &message,
	}); err != nil {
		log.WithError(err).Error("failed to record error status")
	}
	if err := j.deps.Store.FailJob(ctx, j.job.ID, message); err != nil {
		log.WithError(err).Error("failed to mark job failed")
	}
	return fmt.Errorf("transcription job %s: %s", j.job.ID, message)
}

func (j *TranscribeRecordingJob) transcriberFor(log *logrus.Entry) transcriber.Transcriber {
	if j.deps.OverrideTranscriber == nil || len(j.job.Metadata) == 0 {
		return j.deps.Transcriber
	}
	var meta models.JobMetadata
	if err := json.Unmarshal(j.job.Metadata, &meta); err != nil || meta.APIKeyOverride == "" {
		return j.deps.Transcriber
	}
	log.Info("using client-supplied transcription credential")
	return j.deps.OverrideTranscriber(meta.APIKeyOverride)
}

func contentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
