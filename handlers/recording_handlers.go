package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"salescoach/internal/store"
	"salescoach/middleware"
	"salescoach/utils"
)

func parseIDParam(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

// ListRecordingsHandler returns the caller's recordings, newest first.
func (h *ApplicationHandler) ListRecordingsHandler(c *fiber.Ctx) error {
	ownerID := middleware.UserID(c)

	recordings, err := h.Store.ListRecordings(c.Context(), ownerID)
	if err != nil {
		h.Logger.WithError(err).Error("Error listing recordings")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error listing recordings")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, recordings)
}

// GetRecordingHandler returns one recording the caller owns.
func (h *ApplicationHandler) GetRecordingHandler(c *fiber.Ctx) error {
	ownerID := middleware.UserID(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid recording id")
	}

	rec, err := h.Store.GetRecording(c.Context(), ownerID, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Recording not found")
		}
		h.Logger.WithError(err).Error("Error fetching recording")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error fetching recording")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, rec)
}

// RenameRecordingRequest is the body of PATCH /recordings/:id.
type RenameRecordingRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
}

// RenameRecordingHandler updates a recording's title.
func (h *ApplicationHandler) RenameRecordingHandler(c *fiber.Ctx) error {
	ownerID := middleware.UserID(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid recording id")
	}

	var req RenameRecordingRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	req.Title = utils.SanitizeInput(req.Title)
	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": utils.FormatValidationErrors(err),
		})
	}

	if err := h.Store.RenameRecording(c.Context(), ownerID, id, req.Title); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Recording not found")
		}
		h.Logger.WithError(err).Error("Error renaming recording")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error renaming recording")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"id": id, "title": req.Title})
}

// DeleteRecordingHandler removes a recording with its transcript and notes.
func (h *ApplicationHandler) DeleteRecordingHandler(c *fiber.Ctx) error {
	ownerID := middleware.UserID(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid recording id")
	}

	if err := h.Store.DeleteRecordingCascade(c.Context(), ownerID, id); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Recording not found")
		}
		h.Logger.WithError(err).Error("Error deleting recording")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error deleting recording")
	}

	h.Logger.WithField("recording_id", id).Info("Recording deleted")
	return c.SendStatus(fiber.StatusNoContent)
}

// GetTranscriptHandler returns the transcript of a recording the caller owns.
func (h *ApplicationHandler) GetTranscriptHandler(c *fiber.Ctx) error {
	ownerID := middleware.UserID(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid recording id")
	}

	if _, err := h.Store.GetRecording(c.Context(), ownerID, id); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Recording not found")
		}
		h.Logger.WithError(err).Error("Error fetching recording")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error fetching recording")
	}

	transcript, err := h.Store.GetTranscriptByRecording(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Transcript not found")
		}
		h.Logger.WithError(err).Error("Error fetching transcript")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error fetching transcript")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, transcript)
}

// ListNotesHandler returns a recording's conversation notes, most recent
// first.
func (h *ApplicationHandler) ListNotesHandler(c *fiber.Ctx) error {
	ownerID := middleware.UserID(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid recording id")
	}

	if _, err := h.Store.GetRecording(c.Context(), ownerID, id); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Recording not found")
		}
		h.Logger.WithError(err).Error("Error fetching recording")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error fetching recording")
	}

	notes, err := h.Store.ListNotesByRecording(c.Context(), id)
	if err != nil {
		h.Logger.WithError(err).Error("Error listing notes")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error listing notes")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, notes)
}
