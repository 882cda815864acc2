package main

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/100xengineers/self-discovery-backend/internal/api"
	"github.com/100xengineers/self-discovery-backend/internal/auth"
	"github.com/100xengineers/self-discovery-backend/internal/chat"
	"github.com/100xengineers/self-discovery-backend/internal/config"
	"github.com/100xengineers/self-discovery-backend/internal/database"
	"github.com/100xengineers/self-discovery-backend/internal/profile"
	"github.com/100xengineers/self-discovery-backend/internal/providers/openai"
	"github.com/100xengineers/self-discovery-backend/internal/repository/postgres"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	// Connect to database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Self-Discovery Backend",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     getOrigins(),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize repositories
	authSessionRepo := postgres.NewUserSessionRepository(db.DB)
	usageLedgerRepo := postgres.NewUsageLedgerRepository(db.DB)

	// Initialize the profile system client
	profileClient := profile.NewClient(cfg.Profile, log)

	// Initialize auth service
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "change-me-in-production" // Default for development
		log.Warn("Using default JWT secret. Set SELFDISC_JWT_SECRET in production!")
	}
	authService := auth.NewService(authSessionRepo, profileClient, jwtSecret, log)

	// Initialize the completion provider and turn runner
	provider, err := openai.NewProvider(cfg.OpenAI)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize completion provider")
	}
	runner := chat.NewRunner(profileClient, provider, usageLedgerRepo, log, cfg.DefaultModel)

	// Setup routes
	api.SetupRoutes(app, api.Dependencies{
		Auth:    authService,
		Runner:  runner,
		Profile: profileClient,
		Ledger:  usageLedgerRepo,
		Logger:  log,
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.WithField("addr", addr).Info("Self-Discovery Backend starting")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

func getOrigins() string {
	origins := os.Getenv("SELFDISC_CORS_ORIGINS")
	if origins == "" {
		return "http://localhost:3000,http://localhost:5173"
	}
	return origins
}
