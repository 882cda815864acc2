package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/100xengineers/self-discovery-backend/internal/api/middleware"
	"github.com/100xengineers/self-discovery-backend/internal/repository"
)

// UsageHandler serves the caller's recent usage ledger rows.
type UsageHandler struct {
	ledger repository.UsageLedgerRepository
	logger *logrus.Logger
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(ledger repository.UsageLedgerRepository, logger *logrus.Logger) *UsageHandler {
	return &UsageHandler{ledger: ledger, logger: logger}
}

// List handles GET /api/v1/usage
func (h *UsageHandler) List(c *fiber.Ctx) error {
	user := middleware.GetUserContext(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
	}

	limit := c.QueryInt("limit", 50)

	entries, err := h.ledger.ListByUser(c.Context(), user.UserID, limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to list usage entries")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load usage"})
	}

	return c.JSON(fiber.Map{"usage": entries})
}
