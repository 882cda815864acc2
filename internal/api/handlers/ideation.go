package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/100xengineers/self-discovery-backend/internal/api/middleware"
	"github.com/100xengineers/self-discovery-backend/internal/chat"
	"github.com/100xengineers/self-discovery-backend/internal/modules"
	"github.com/100xengineers/self-discovery-backend/internal/profile"
)

// IdeationHandler serves the per-module ideation state: the module list,
// saved ideas and transcripts, and module balances.
type IdeationHandler struct {
	profile *profile.Client
	logger  *logrus.Logger
}

// NewIdeationHandler creates a new ideation handler
func NewIdeationHandler(profileClient *profile.Client, logger *logrus.Logger) *IdeationHandler {
	return &IdeationHandler{profile: profileClient, logger: logger}
}

// ListModules handles GET /api/v1/modules
func (h *IdeationHandler) ListModules(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"modules": modules.All()})
}

// Ideas handles GET /api/v1/ideation/:module/ideas. The stored transcript
// rides along with the ideas, so this also serves chat restore.
func (h *IdeationHandler) Ideas(c *fiber.Ctx) error {
	user := middleware.GetUserContext(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
	}

	module, err := modules.ByKey(c.Params("module"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown module"})
	}

	ideas, err := h.profile.ListProjectIdeas(c.Context(), user.UserID.String(), module.Name)
	if err != nil {
		h.logger.WithError(err).Error("failed to list project ideas")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Profile system unavailable"})
	}

	return c.JSON(fiber.Map{
		"module": module.Key,
		"ideas":  ideas,
		"max":    chat.MaxProjectIdeasPerModule,
	})
}

// Balance handles GET /api/v1/ideation/:module/balance
func (h *IdeationHandler) Balance(c *fiber.Ctx) error {
	user := middleware.GetUserContext(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
	}

	module, err := modules.ByKey(c.Params("module"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown module"})
	}

	balance, err := h.profile.GetBalance(c.Context(), user.UserID.String(), module.Bucket)
	if err != nil {
		h.logger.WithError(err).Error("failed to load ideation balance")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Profile system unavailable"})
	}

	return c.JSON(fiber.Map{
		"module":  module.Key,
		"balance": balance,
		"credits": chat.Credits(balance),
	})
}
