package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"salescoach/internal/coach"
	"salescoach/internal/store"
	"salescoach/middleware"
	"salescoach/models"
	"salescoach/utils"
)

// AnalyzeConversationRequest is the body of POST /api/v1/analyze-conversation.
type AnalyzeConversationRequest struct {
	RecordingID string `json:"recordingId"`
	Question    string `json:"question"`
}

// AnalyzeConversationHandler answers a coaching question about a completed
// transcript. Answers are cached as conversation notes: asking the same
// question again returns the stored note without another collaborator call.
func (h *ApplicationHandler) AnalyzeConversationHandler(c *fiber.Ctx) error {
	ownerID := middleware.UserID(c)

	var req AnalyzeConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.RecordingID) == "" {
		return utils.RespondWithCode(c, fiber.StatusBadRequest, "recordingId is required", "MISSING_RECORDING_ID")
	}
	question := utils.SanitizeInput(req.Question)
	if question == "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "question is required")
	}
	recordingID, err := uuid.Parse(req.RecordingID)
	if err != nil {
		return utils.RespondWithCode(c, fiber.StatusBadRequest, "recordingId is not a valid id", "MISSING_RECORDING_ID")
	}

	if _, err := h.Store.GetRecording(c.Context(), ownerID, recordingID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithCode(c, fiber.StatusNotFound, "Recording not found", "NOT_FOUND")
		}
		h.Logger.WithError(err).Error("Error fetching recording for analysis")
		return utils.RespondWithCode(c, fiber.StatusInternalServerError, "Error fetching recording", "SERVER_ERROR")
	}

	transcript, err := h.Store.GetTranscriptByRecording(c.Context(), recordingID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusConflict, "Recording has no transcript yet; transcribe it first")
		}
		h.Logger.WithError(err).Error("Error fetching transcript for analysis")
		return utils.RespondWithCode(c, fiber.StatusInternalServerError, "Error fetching transcript", "SERVER_ERROR")
	}

	// Cached-answer check: notes are returned most recent first, so the
	// first question match is the freshest answer.
	notes, err := h.Store.ListNotesByRecording(c.Context(), recordingID)
	if err != nil {
		h.Logger.WithError(err).Error("Error listing conversation notes")
		return utils.RespondWithCode(c, fiber.StatusInternalServerError, "Error fetching notes", "SERVER_ERROR")
	}
	for _, note := range notes {
		if note.Question == question {
			var analysis coach.Analysis
			if err := json.Unmarshal(note.Answer, &analysis); err == nil {
				return c.JSON(fiber.Map{
					"success":  true,
					"analysis": analysis,
					"cached":   true,
				})
			}
			break
		}
	}

	formatted := coach.FormatTranscript(transcript.Segments)
	if formatted == "" {
		formatted = transcript.Text
	}
	analysis, err := h.Coach.Analyze(c.Context(), formatted, question)
	if err != nil {
		h.Logger.WithError(err).Error("Coach collaborator call failed")
		return utils.RespondWithCode(c, fiber.StatusBadGateway, "Analysis service is unavailable", "SERVER_ERROR")
	}

	answer, err := json.Marshal(analysis)
	if err != nil {
		h.Logger.WithError(err).Error("Error encoding analysis")
		return utils.RespondWithCode(c, fiber.StatusInternalServerError, "Error encoding analysis", "SERVER_ERROR")
	}
	var timestamps json.RawMessage
	if len(analysis.Timestamps) > 0 {
		timestamps, _ = json.Marshal(analysis.Timestamps)
	}

	if _, err := h.Store.CreateNote(c.Context(), models.ConversationNote{
		RecordingID: recordingID,
		Question:    question,
		Answer:      answer,
		Timestamps:  timestamps,
	}); err != nil {
		// The answer is already computed; losing the cache is not worth
		// failing the request.
		h.Logger.WithError(err).Error("Error caching conversation note")
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"analysis": analysis,
	})
}
