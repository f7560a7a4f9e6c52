package handlers

import (
	"github.com/gofiber/fiber/v2"

	"salescoach/internal/billing"
	"salescoach/internal/emailer"
	"salescoach/middleware"
	"salescoach/utils"
)

// InvitationRequest is the body of POST /api/v1/invitations.
type InvitationRequest struct {
	Email     string `json:"email" validate:"required,email"`
	GroupName string `json:"groupName" validate:"required,min=1,max=100"`
	JoinURL   string `json:"joinUrl" validate:"required,url"`
}

// SendInvitationHandler emails a collaboration invitation through the email
// provider. The inviter is identified by the caller's own profile.
func (h *ApplicationHandler) SendInvitationHandler(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var req InvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": utils.FormatValidationErrors(err),
		})
	}

	inviter := "A teammate"
	if profile, err := h.Store.GetProfile(c.Context(), userID); err == nil {
		inviter = profile.Email
	}

	msg := emailer.InvitationMessage(req.Email, inviter, req.GroupName, req.JoinURL)
	if err := h.Emailer.Send(c.Context(), msg); err != nil {
		h.Logger.WithError(err).Error("Error sending invitation email")
		return utils.RespondWithError(c, fiber.StatusBadGateway, "Error sending invitation")
	}

	h.Logger.WithField("to", req.Email).Info("Invitation sent")
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"sent": true})
}

// CheckoutSessionRequest is the body of POST /api/v1/checkout-session.
type CheckoutSessionRequest struct {
	PriceID    string `json:"priceId" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	SuccessURL string `json:"successUrl" validate:"required,url"`
	CancelURL  string `json:"cancelUrl" validate:"required,url"`
}

// CreateCheckoutSessionHandler opens a payment checkout session and returns
// the redirect URL.
func (h *ApplicationHandler) CreateCheckoutSessionHandler(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var req CheckoutSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": utils.FormatValidationErrors(err),
		})
	}

	session, err := h.Billing.CreateCheckoutSession(c.Context(), billing.CheckoutParams{
		CustomerEmail: req.Email,
		PriceID:       req.PriceID,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
		ClientRefID:   userID.String(),
	})
	if err != nil {
		h.Logger.WithError(err).Error("Error creating checkout session")
		return utils.RespondWithError(c, fiber.StatusBadGateway, "Error creating checkout session")
	}

	return utils.RespondWithJSON(c, fiber.StatusCreated, session)
}
