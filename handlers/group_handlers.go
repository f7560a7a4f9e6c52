package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"salescoach/internal/store"
	"salescoach/middleware"
	"salescoach/models"
	"salescoach/utils"
)

// CreateGroupRequest is the body of POST /api/v1/groups.
type CreateGroupRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// CreateGroupHandler creates a group with the caller as its owner member.
func (h *ApplicationHandler) CreateGroupHandler(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var req CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	req.Name = utils.SanitizeInput(req.Name)
	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": utils.FormatValidationErrors(err),
		})
	}

	group, err := h.Store.CreateGroup(c.Context(), models.Group{Name: req.Name, OwnerID: userID})
	if err != nil {
		h.Logger.WithError(err).Error("Error creating group")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error creating group")
	}
	if err := h.Store.AddMember(c.Context(), models.GroupMember{
		GroupID: group.ID,
		UserID:  userID,
		Role:    models.GroupRoleOwner,
	}); err != nil {
		h.Logger.WithError(err).Error("Error adding group owner membership")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error creating group")
	}

	h.Logger.WithFields(map[string]interface{}{"group_id": group.ID, "owner_id": userID}).Info("Group created")
	return utils.RespondWithJSON(c, fiber.StatusCreated, group)
}

// ListGroupsHandler returns the groups the caller belongs to.
func (h *ApplicationHandler) ListGroupsHandler(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	groups, err := h.Store.ListGroupsForUser(c.Context(), userID)
	if err != nil {
		h.Logger.WithError(err).Error("Error listing groups")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error listing groups")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, groups)
}

// JoinGroupHandler adds the caller to a group as a regular member.
func (h *ApplicationHandler) JoinGroupHandler(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	groupID, ok := parseIDParam(c, "id")
	if !ok {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid group id")
	}

	member, err := h.Store.IsMember(c.Context(), groupID, userID)
	if err != nil {
		h.Logger.WithError(err).Error("Error checking membership")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error joining group")
	}
	if member {
		return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"joined": true})
	}

	if err := h.Store.AddMember(c.Context(), models.GroupMember{
		GroupID: groupID,
		UserID:  userID,
		Role:    models.GroupRoleMember,
	}); err != nil {
		h.Logger.WithError(err).Error("Error joining group")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error joining group")
	}
	return utils.RespondWithJSON(c, fiber.StatusCreated, fiber.Map{"joined": true})
}

// PostGroupMessageRequest is the body of POST /api/v1/groups/:id/messages.
// A message carries text, a shared recording, or both.
type PostGroupMessageRequest struct {
	Content     string `json:"content,omitempty"`
	RecordingID string `json:"recordingId,omitempty"`
}

// PostGroupMessageHandler posts a message into a group the caller belongs
// to. Sharing a recording requires the caller to own it.
func (h *ApplicationHandler) PostGroupMessageHandler(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	groupID, ok := parseIDParam(c, "id")
	if !ok {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid group id")
	}

	member, err := h.Store.IsMember(c.Context(), groupID, userID)
	if err != nil {
		h.Logger.WithError(err).Error("Error checking membership")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error posting message")
	}
	if !member {
		return utils.RespondWithError(c, fiber.StatusForbidden, "Not a member of this group")
	}

	var req PostGroupMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	req.Content = utils.SanitizeInput(req.Content)
	if req.Content == "" && req.RecordingID == "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Message needs content or a recording")
	}

	msg := models.GroupMessage{GroupID: groupID, SenderID: userID}
	if req.Content != "" {
		msg.Content = &req.Content
	}
	if req.RecordingID != "" {
		recordingID, err := uuid.Parse(req.RecordingID)
		if err != nil {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid recording id")
		}
		// Only the owner may share a recording into a group.
		if _, err := h.Store.GetRecording(c.Context(), userID, recordingID); err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return utils.RespondWithError(c, fiber.StatusNotFound, "Recording not found")
			}
			h.Logger.WithError(err).Error("Error fetching recording to share")
			return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error posting message")
		}
		msg.RecordingID = &recordingID
	}

	created, err := h.Store.CreateMessage(c.Context(), msg)
	if err != nil {
		h.Logger.WithError(err).Error("Error posting message")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error posting message")
	}
	return utils.RespondWithJSON(c, fiber.StatusCreated, created)
}

// ListGroupMessagesHandler returns a group's messages for a member.
func (h *ApplicationHandler) ListGroupMessagesHandler(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	groupID, ok := parseIDParam(c, "id")
	if !ok {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid group id")
	}

	member, err := h.Store.IsMember(c.Context(), groupID, userID)
	if err != nil {
		h.Logger.WithError(err).Error("Error checking membership")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error listing messages")
	}
	if !member {
		return utils.RespondWithError(c, fiber.StatusForbidden, "Not a member of this group")
	}

	messages, err := h.Store.ListMessages(c.Context(), groupID)
	if err != nil {
		h.Logger.WithError(err).Error("Error listing messages")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error listing messages")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, messages)
}
