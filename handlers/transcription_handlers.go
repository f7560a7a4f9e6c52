package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"salescoach/internal/store"
	"salescoach/middleware"
	"salescoach/models"
	"salescoach/utils"
)

// TranscribeAudioRequest is the body of POST /api/v1/transcribe-audio.
type TranscribeAudioRequest struct {
	RecordingID string `json:"recordingId"`
	APIKey      string `json:"apiKey,omitempty"`
}

// TranscribeAudioHandler enqueues a transcription job for a recording the
// caller owns and returns immediately; the worker picks the job up from the
// queue. The optional apiKey field lets a caller supply their own speech
// credential for this one job.
func (h *ApplicationHandler) TranscribeAudioHandler(c *fiber.Ctx) error {
	ownerID := middleware.UserID(c)

	var req TranscribeAudioRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondWithCode(c, fiber.StatusBadRequest, "Invalid request body", "SERVER_ERROR")
	}
	if strings.TrimSpace(req.RecordingID) == "" {
		return utils.RespondWithCode(c, fiber.StatusBadRequest, "recordingId is required", "MISSING_RECORDING_ID")
	}
	recordingID, err := uuid.Parse(req.RecordingID)
	if err != nil {
		return utils.RespondWithCode(c, fiber.StatusBadRequest, "recordingId is not a valid id", "MISSING_RECORDING_ID")
	}

	var metadata json.RawMessage
	if req.APIKey != "" {
		// Only well-formed override credentials are forwarded; anything else
		// is rejected rather than silently ignored.
		if !strings.HasPrefix(req.APIKey, "sk-") {
			return utils.RespondWithCode(c, fiber.StatusBadRequest, "Provided API key is not valid", "SERVER_API_KEY_MISSING")
		}
		metadata, _ = json.Marshal(models.JobMetadata{APIKeyOverride: req.APIKey})
	} else if !h.Config.HasTranscriptionKey() {
		h.Logger.Error("Transcription requested but no server API key is configured")
		return utils.RespondWithCode(c, fiber.StatusInternalServerError,
			"Transcription is not configured on this server", "SERVER_API_KEY_MISSING")
	}

	rec, err := h.Store.GetRecording(c.Context(), ownerID, recordingID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithCode(c, fiber.StatusNotFound, "Recording not found", "NOT_FOUND")
		}
		h.Logger.WithError(err).Error("Error fetching recording for transcription")
		return utils.RespondWithCode(c, fiber.StatusInternalServerError, "Error fetching recording", "SERVER_ERROR")
	}

	if rec.Status != models.RecordingStatusUploaded && rec.Status != models.RecordingStatusError {
		return utils.RespondWithCode(c, fiber.StatusConflict,
			fmt.Sprintf("Recording is already %s", rec.Status), "ALREADY_PROCESSED")
	}

	job, err := h.Store.EnqueueJob(c.Context(), models.TranscriptionJob{
		RecordingID: rec.ID,
		OwnerID:     ownerID,
		Metadata:    metadata,
	})
	if err != nil {
		h.Logger.WithError(err).Error("Error enqueuing transcription job")
		return utils.RespondWithCode(c, fiber.StatusInternalServerError, "Error starting transcription", "SERVER_ERROR")
	}

	h.Logger.WithFields(map[string]interface{}{
		"recording_id": rec.ID,
		"job_id":       job.ID,
	}).Info("Transcription job enqueued")

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success":     true,
		"message":     "Transcription started",
		"recordingId": rec.ID,
		"jobId":       job.ID,
	})
}
