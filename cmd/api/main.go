package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"salescoach/config"
	"salescoach/handlers"
	"salescoach/internal/billing"
	"salescoach/internal/coach"
	"salescoach/internal/emailer"
	"salescoach/internal/storage"
	"salescoach/internal/store"
	"salescoach/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	supaClient, err := config.NewSupabaseClient(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize Supabase: %v", err)
	}

	dataStore := store.NewSupabaseStore(supaClient)
	objStorage := storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket)
	coachClient := coach.NewOpenAIClient(cfg.CoachAPIURL, cfg.CoachAPIKey, cfg.CoachModel)
	emailClient := emailer.NewHTTPEmailer(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom)
	billingClient := billing.NewHTTPBilling(cfg.CheckoutAPIURL, cfg.CheckoutAPIKey)

	h := handlers.NewApplicationHandler(dataStore, objStorage, coachClient, emailClient, billingClient, logger, cfg)
	verifier := middleware.NewSupabaseTokenVerifier(cfg.SupabaseURL, cfg.SupabaseServiceKey)

	app := fiber.New(fiber.Config{
		BodyLimit: handlers.MaxUploadBytes + (1 << 20),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.RequestLogger(logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "API is healthy",
		})
	})

	apiV1 := app.Group("/api/v1", middleware.RequireAuth(verifier))

	apiV1.Post("/upload-audio", h.UploadAudioHandler)
	apiV1.Post("/transcribe-audio", h.TranscribeAudioHandler)
	apiV1.Post("/analyze-conversation", h.AnalyzeConversationHandler)

	apiV1.Get("/recordings", h.ListRecordingsHandler)
	apiV1.Get("/recordings/:id", h.GetRecordingHandler)
	apiV1.Patch("/recordings/:id", h.RenameRecordingHandler)
	apiV1.Delete("/recordings/:id", h.DeleteRecordingHandler)
	apiV1.Get("/recordings/:id/transcript", h.GetTranscriptHandler)
	apiV1.Get("/recordings/:id/notes", h.ListNotesHandler)

	apiV1.Get("/jobs/:id", h.GetJobStatusHandler)

	apiV1.Post("/groups", h.CreateGroupHandler)
	apiV1.Get("/groups", h.ListGroupsHandler)
	apiV1.Post("/groups/:id/join", h.JoinGroupHandler)
	apiV1.Post("/groups/:id/messages", h.PostGroupMessageHandler)
	apiV1.Get("/groups/:id/messages", h.ListGroupMessagesHandler)

	apiV1.Post("/invitations", h.SendInvitationHandler)
	apiV1.Post("/checkout-session", h.CreateCheckoutSessionHandler)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logger.Info("Shutting down API server")
		_ = app.Shutdown()
	}()

	logger.Infof("Starting API server on port %d", cfg.Port)
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
}
