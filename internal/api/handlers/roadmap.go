package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/100xengineers/self-discovery-backend/internal/modules"
)

// Roadmap handles GET /api/v1/roadmap: the static cohort roadmap the
// dashboard renders alongside the discovery tools.
func Roadmap() fiber.Handler {
	roadmap := fiber.Map{
		"program": "100xEngineers GenAI Cohort",
		"modules": modules.All(),
	}

	return func(c *fiber.Ctx) error {
		return c.JSON(roadmap)
	}
}
