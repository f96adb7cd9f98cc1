// Package main is the entry point for the scheduling assistant API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gruve-ai/scheduling-assistant/internal/assistant"
	"github.com/gruve-ai/scheduling-assistant/internal/config"
	"github.com/gruve-ai/scheduling-assistant/internal/events"
	"github.com/gruve-ai/scheduling-assistant/internal/gateway"
	"github.com/gruve-ai/scheduling-assistant/internal/handler"
	"github.com/gruve-ai/scheduling-assistant/internal/middleware"
	"github.com/gruve-ai/scheduling-assistant/internal/orchestrator"
	"github.com/gruve-ai/scheduling-assistant/internal/store"
	"github.com/gruve-ai/scheduling-assistant/pkg/logger"
	"github.com/gruve-ai/scheduling-assistant/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "scheduling-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS
	eventsClient, err := events.Connect(ctx, events.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer eventsClient.Close()

	// Ensure JetStream stream exists
	publisher := events.NewPublisher(eventsClient)
	if err := publisher.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	// Pick an assistant provider; the canned client keeps replies working
	// without any API key.
	provider := assistant.ProviderCanned
	apiKey := ""
	switch {
	case cfg.AnthropicAPIKey != "" && cfg.DefaultAssistant != string(assistant.ProviderOpenAI):
		provider = assistant.ProviderAnthropic
		apiKey = cfg.AnthropicAPIKey
	case cfg.OpenAIAPIKey != "":
		provider = assistant.ProviderOpenAI
		apiKey = cfg.OpenAIAPIKey
	}
	replies, err := assistant.NewClient(provider, apiKey)
	if err != nil {
		log.Warn("failed to create assistant client, falling back to canned replies", zap.Error(err))
		replies, _ = assistant.NewClient(assistant.ProviderCanned, "")
	}
	log.Info("assistant provider selected", zap.String("provider", replies.Name()))

	// Calendar and directory gateways
	availabilityClient := gateway.NewAvailabilityClient(cfg.CalendarServiceURL, cfg.GatewayTimeout)
	meetingClient := gateway.NewMeetingClient(cfg.CalendarServiceURL, cfg.GatewayTimeout)
	directoryClient := gateway.NewDirectoryClient(cfg.DirectoryServiceURL, cfg.GatewayTimeout)

	// Conversation store and orchestrator
	conversations := store.New()
	orch := orchestrator.New(conversations, availabilityClient, meetingClient, directoryClient,
		replies, publisher, log, orchestrator.Options{
			StatusFrameInterval: cfg.StatusFrameInterval,
			ConfirmClearDelay:   cfg.ConfirmClearDelay,
			MaxSuggestions:      cfg.MaxSuggestions,
		})

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(eventsClient.IsConnected)
	conversationHandler := handler.NewConversationHandler(conversations, orch, log)
	messageHandler := handler.NewMessageHandler(conversations, orch, log)
	scheduleHandler := handler.NewScheduleHandler(conversations, orch, log)
	quickActionHandler := handler.NewQuickActionHandler(conversations, orch, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Conversations
		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/timeline", conversationHandler.Timeline)

				// Messages
				r.Post("/messages", messageHandler.Send)

				// Scheduling widget
				r.Post("/widget", scheduleHandler.OpenWidget)
				r.Patch("/widget/{entryID}", scheduleHandler.UpdateWidget)
				r.Post("/widget/{entryID}/submit", scheduleHandler.SubmitWidget)
				r.Delete("/widget/{entryID}", scheduleHandler.DismissWidget)

				// Slot slates
				r.Post("/slates/{entryID}/confirm", scheduleHandler.ConfirmSlot)

				// Quick availability checks
				r.Post("/quick-actions", quickActionHandler.Run)
			})
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
