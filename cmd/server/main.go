package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/auth"
	"github.com/gdg-garage/wedding-rsvp-api/internal/broker"
	"github.com/gdg-garage/wedding-rsvp-api/internal/comms"
	"github.com/gdg-garage/wedding-rsvp-api/internal/config"
	"github.com/gdg-garage/wedding-rsvp-api/internal/database"
	"github.com/gdg-garage/wedding-rsvp-api/internal/family"
	"github.com/gdg-garage/wedding-rsvp-api/internal/guests"
	"github.com/gdg-garage/wedding-rsvp-api/internal/handlers"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/gdg-garage/wedding-rsvp-api/internal/messaging"
	"github.com/gdg-garage/wedding-rsvp-api/internal/notifier"
	"github.com/gdg-garage/wedding-rsvp-api/internal/repository"
	"github.com/gdg-garage/wedding-rsvp-api/internal/rsvp"
	"github.com/gdg-garage/wedding-rsvp-api/internal/token"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	if err := logging.Init(&cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger := logging.GetLogger()

	// Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	repos := repository.New(db)

	// Optional collaborators
	var publisher broker.Publisher
	if cfg.RabbitMQURL != "" {
		rabbit, err := broker.NewRabbitPublisher(cfg.RabbitMQURL)
		if err != nil {
			logger.Warnf("RabbitMQ publisher not initialized: %v", err)
		} else {
			defer rabbit.Close()
			publisher = rabbit
		}
	}
	events := broker.NewEmitter(publisher, logger)

	var organizerNotifier notifier.Notifier
	discordNotifier, err := notifier.NewDiscordNotifierFromToken(cfg.DiscordBotToken, cfg.DiscordNotificationsChannelID)
	if err != nil {
		logger.Infof("Discord notifier not initialized: %v", err)
	} else {
		organizerNotifier = discordNotifier
	}

	authenticator, err := auth.NewAuthenticator(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize authentication: %v", err)
	}

	importPolicy, err := guests.ParseDuplicatePolicy(cfg.ImportDuplicatePolicy)
	if err != nil {
		logger.Fatalf("Invalid IMPORT_DUPLICATE_POLICY: %v", err)
	}

	// Services
	tokens := token.NewService(repos, events, logger)
	rsvpService := rsvp.NewService(repos, events, organizerNotifier, logger)
	familyService := family.NewService(repos, events, logger)
	guestService := guests.NewService(repos, events, logger)
	commsService := comms.NewService(repos, logger)

	// Outbound messaging: WhatsApp first, email as fallback.
	var providers []messaging.Provider
	if cfg.WhatsAppDataDir != "" {
		whatsapp, err := messaging.NewWhatsAppProvider(context.Background(), cfg.WhatsAppDataDir)
		if err != nil {
			logger.Warnf("WhatsApp provider not initialized: %v", err)
		} else {
			defer whatsapp.Close()
			providers = append(providers, whatsapp)
		}
	}
	providers = append(providers, messaging.NewEmailProvider(cfg.SMTP))
	dispatcher := messaging.NewDispatcher(commsService, logger, providers...)

	// Initialize Handlers
	rsvpHandler := handlers.NewRSVPHandler(tokens, rsvpService, familyService, guestService, logger)
	organizerHandler := handlers.NewOrganizerHandler(guestService, tokens, rsvpService, commsService, dispatcher, cfg.PublicRSVPURL, importPolicy, logger)
	limiter := handlers.NewTokenRateLimiter(cfg.TokenRateLimitPerMinute, cfg.TokenRateLimitBurst, logger)

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, db, authenticator, limiter, rsvpHandler, organizerHandler, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
}
