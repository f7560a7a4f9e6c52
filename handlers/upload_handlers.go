package handlers

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"salescoach/internal/storage"
	"salescoach/middleware"
	"salescoach/models"
	"salescoach/utils"
)

// MaxUploadBytes is the upload size ceiling.
const MaxUploadBytes = 100 << 20

var allowedAudioTypes = map[string]bool{
	"audio/mpeg": true,
	"audio/wav":  true,
	"audio/mp4":  true,
	"audio/m4a":  true,
}

// UploadAudioHandler accepts a multipart audio file, writes it to object
// storage and creates the owning recording row in status "uploaded".
// Validation happens before any network call: rejected uploads never touch
// storage or the database.
func (h *ApplicationHandler) UploadAudioHandler(c *fiber.Ctx) error {
	ownerID := middleware.UserID(c)

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		h.Logger.WithError(err).Warn("Upload request without audio file")
		return utils.RespondWithError(c, fiber.StatusBadRequest, "No audio file provided")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedAudioTypes[contentType] {
		h.Logger.WithField("content_type", contentType).Warn("Rejected upload with unsupported type")
		return utils.RespondWithError(c, fiber.StatusBadRequest,
			fmt.Sprintf("Unsupported audio type %q; supported types are audio/mpeg, audio/wav, audio/mp4, audio/m4a", contentType))
	}
	if fileHeader.Size > MaxUploadBytes {
		h.Logger.WithField("size_bytes", fileHeader.Size).Warn("Rejected oversized upload")
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Audio file exceeds the 100 MB limit")
	}

	fileHandle, err := fileHeader.Open()
	if err != nil {
		h.Logger.WithError(err).Error("Error opening uploaded file")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error reading uploaded file")
	}
	defer fileHandle.Close()

	audio, err := io.ReadAll(fileHandle)
	if err != nil {
		h.Logger.WithError(err).Error("Error reading uploaded file")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error reading uploaded file")
	}

	key := storage.ObjectKey(ownerID, fileHeader.Filename, time.Now())
	if err := h.Storage.Upload(c.Context(), key, contentType, audio); err != nil {
		h.Logger.WithError(err).Error("Error uploading audio to storage")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error storing audio file")
	}

	title := utils.SanitizeInput(c.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(fileHeader.Filename, filepath.Ext(fileHeader.Filename))
	}

	audioURL := h.Storage.PublicURL(key)
	rec, err := h.Store.CreateRecording(c.Context(), models.Recording{
		OwnerID:       ownerID,
		Title:         title,
		AudioURL:      &audioURL,
		AudioFilename: key,
		FileSizeBytes: fileHeader.Size,
		Status:        models.RecordingStatusUploaded,
	})
	if err != nil {
		h.Logger.WithError(err).Error("Error creating recording row")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error saving recording")
	}

	h.Logger.WithFields(map[string]interface{}{
		"recording_id": rec.ID,
		"owner_id":     ownerID,
		"size_bytes":   fileHeader.Size,
	}).Info("Audio uploaded")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"recording": rec,
	})
}
