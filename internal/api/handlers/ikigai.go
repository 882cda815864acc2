package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/100xengineers/self-discovery-backend/internal/api/middleware"
	"github.com/100xengineers/self-discovery-backend/internal/chat"
	"github.com/100xengineers/self-discovery-backend/internal/models"
	"github.com/100xengineers/self-discovery-backend/internal/profile"
)

// IkigaiHandler serves the Ikigai tool state: stored chart, transcript and
// balance, plus the start-over action.
type IkigaiHandler struct {
	profile *profile.Client
	runner  *chat.Runner
	logger  *logrus.Logger
}

// NewIkigaiHandler creates a new ikigai handler
func NewIkigaiHandler(profileClient *profile.Client, runner *chat.Runner, logger *logrus.Logger) *IkigaiHandler {
	return &IkigaiHandler{profile: profileClient, runner: runner, logger: logger}
}

// Get handles GET /api/v1/ikigai
func (h *IkigaiHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetUserContext(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
	}

	record, err := h.profile.GetIkigai(c.Context(), user.UserID.String())
	if err != nil {
		h.logger.WithError(err).Error("failed to load ikigai record")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Profile system unavailable"})
	}

	status := models.StatusOngoing
	if record.Details != nil && record.Details.Status != "" {
		status = record.Details.Status
	}

	return c.JSON(fiber.Map{
		"ikigai_details": record.Details,
		"chat_history":   record.ChatHistory,
		"status":         status,
	})
}

// Delete handles DELETE /api/v1/ikigai (the start-over action). Warning
// guards for the bucket reset with the conversation.
func (h *IkigaiHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetUserContext(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
	}

	if err := h.profile.DeleteIkigai(c.Context(), user.UserID.String()); err != nil {
		h.logger.WithError(err).Error("failed to delete ikigai record")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Profile system unavailable"})
	}

	h.runner.ResetWarnings(user.UserID, profile.BucketIkigai)

	return c.JSON(fiber.Map{"message": "Ikigai conversation cleared"})
}

// Balance handles GET /api/v1/ikigai/balance
func (h *IkigaiHandler) Balance(c *fiber.Ctx) error {
	user := middleware.GetUserContext(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
	}

	balance, err := h.profile.GetBalance(c.Context(), user.UserID.String(), profile.BucketIkigai)
	if err != nil {
		h.logger.WithError(err).Error("failed to load ikigai balance")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Profile system unavailable"})
	}

	return c.JSON(fiber.Map{
		"balance": balance,
		"credits": chat.Credits(balance),
	})
}
