package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"salescoach/internal/store"
	"salescoach/middleware"
	"salescoach/utils"
)

// GetJobStatusHandler returns the state of one transcription job the caller
// enqueued.
func (h *ApplicationHandler) GetJobStatusHandler(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	jobID, ok := parseIDParam(c, "id")
	if !ok {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid job id")
	}

	job, err := h.Store.GetJob(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Job not found")
		}
		h.Logger.WithError(err).Error("Error fetching job")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error fetching job")
	}
	if job.OwnerID != userID {
		// Same response as a missing job so job IDs leak nothing.
		return utils.RespondWithError(c, fiber.StatusNotFound, "Job not found")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"id":           job.ID,
		"recording_id": job.RecordingID,
		"status":       job.Status,
		"error":        job.ErrorMessage,
		"started_at":   job.StartedAt,
		"completed_at": job.CompletedAt,
	})
}
