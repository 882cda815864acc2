// Package api wires the HTTP surface: routes, middleware and handlers.
package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/100xengineers/self-discovery-backend/internal/api/handlers"
	"github.com/100xengineers/self-discovery-backend/internal/api/middleware"
	"github.com/100xengineers/self-discovery-backend/internal/auth"
	"github.com/100xengineers/self-discovery-backend/internal/chat"
	"github.com/100xengineers/self-discovery-backend/internal/profile"
	"github.com/100xengineers/self-discovery-backend/internal/repository"
)

// Dependencies carries everything the routes need.
type Dependencies struct {
	Auth    *auth.Service
	Runner  *chat.Runner
	Profile *profile.Client
	Ledger  repository.UsageLedgerRepository
	Logger  *logrus.Logger
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, deps Dependencies) {
	api := app.Group("/api/v1")

	// ========================================
	// Public routes (no authentication needed)
	// ========================================

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "self-discovery-backend",
		})
	})

	authGroup := api.Group("/auth")
	authGroup.Post("/login", middleware.AuthRateLimit(), handlers.Login(deps.Auth, deps.Logger))
	authGroup.Post("/refresh", handlers.RefreshToken(deps.Auth))
	authGroup.Post("/logout", middleware.AuthRequired(deps.Auth), handlers.Logout(deps.Auth))

	// ========================================
	// Protected routes (authentication required)
	// ========================================

	protected := api.Group("", middleware.AuthRequired(deps.Auth))

	protected.Get("/auth/me", handlers.GetCurrentUser())

	ikigaiHandler := handlers.NewIkigaiHandler(deps.Profile, deps.Runner, deps.Logger)
	protected.Get("/ikigai", ikigaiHandler.Get)
	protected.Delete("/ikigai", ikigaiHandler.Delete)
	protected.Get("/ikigai/balance", ikigaiHandler.Balance)

	ideationHandler := handlers.NewIdeationHandler(deps.Profile, deps.Logger)
	protected.Get("/modules", ideationHandler.ListModules)
	protected.Get("/ideation/:module/ideas", ideationHandler.Ideas)
	protected.Get("/ideation/:module/balance", ideationHandler.Balance)

	chatHandler := handlers.NewChatHandler(deps.Runner, deps.Logger)
	protected.Post("/chat/stream", middleware.ChatRateLimit(), chatHandler.StreamSSE)

	rechargeHandler := handlers.NewRechargeHandler(deps.Profile, deps.Logger)
	protected.Post("/recharge-requests", rechargeHandler.Create)

	usageHandler := handlers.NewUsageHandler(deps.Ledger, deps.Logger)
	protected.Get("/usage", usageHandler.List)

	protected.Get("/roadmap", handlers.Roadmap())

	// ========================================
	// WebSocket routes (with auth)
	// ========================================

	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		// Token from query param or header; cookies also work for browsers.
		token := c.Query("token")
		if token == "" {
			token = auth.ExtractTokenFromBearer(c.Get("Authorization"))
		}
		if token == "" {
			token = c.Cookies("access_token")
		}

		if token != "" {
			user, claims, err := deps.Auth.ValidateAccessToken(c.Context(), token)
			if err == nil {
				c.Locals("user_context", user)
				c.Locals("session_id", claims.SessionID)
				c.Locals("allowed", true)
				return c.Next()
			}
		}

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required for WebSocket",
		})
	})

	app.Get("/ws/chat", websocket.New(chatHandler.StreamWS))
}
