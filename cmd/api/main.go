// Package main is the entry point for the API server.
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

	"github.com/talentarc-ai/outreach-platform/internal/config"
	"github.com/talentarc-ai/outreach-platform/internal/engine"
	"github.com/talentarc-ai/outreach-platform/internal/handler"
	"github.com/talentarc-ai/outreach-platform/internal/llm"
	"github.com/talentarc-ai/outreach-platform/internal/middleware"
	natsclient "github.com/talentarc-ai/outreach-platform/internal/nats"
	"github.com/talentarc-ai/outreach-platform/internal/service"
	"github.com/talentarc-ai/outreach-platform/internal/store"
	"github.com/talentarc-ai/outreach-platform/pkg/logger"
	"github.com/talentarc-ai/outreach-platform/pkg/tracing"
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
		tp, err := tracing.InitTracer(ctx, "outreach-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS
	natsClient, err := natsclient.Connect(natsclient.Config{
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
	defer natsClient.Close()

	broadcaster := natsclient.NewBroadcaster(natsClient, log)

	// Open the database
	db, err := store.NewSQLiteStore(cfg.DatabasePath, log)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize LLM client
	provider := llm.Provider(cfg.DefaultLLM)
	apiKey := cfg.OpenAIAPIKey
	if provider == llm.ProviderAnthropic {
		apiKey = cfg.AnthropicAPIKey
	}
	llmClient, err := llm.NewClient(provider, apiKey)
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}

	// Conversation engine
	dispatcher := engine.NewDispatcher(db, llmClient, cfg.LLMModel, broadcaster, log, cfg.LLMRequestTimeout)
	orchestrator := engine.NewOrchestrator(llmClient, cfg.LLMModel, db, db, dispatcher, broadcaster, log, cfg.LLMRequestTimeout)

	// Initialize services
	sessionSvc := service.NewSessionService(db, log)
	messageSvc := service.NewMessageService(sessionSvc, orchestrator, log)
	sequenceSvc := service.NewSequenceService(db, broadcaster, log)
	userSvc := service.NewUserService(db, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient, db)
	sessionHandler := handler.NewSessionHandler(sessionSvc, log)
	messageHandler := handler.NewMessageHandler(messageSvc, log)
	sequenceHandler := handler.NewSequenceHandler(sequenceSvc, log)
	userHandler := handler.NewUserHandler(userSvc, log)
	streamHandler := handler.NewStreamHandler(broadcaster, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-User-Id"},
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

		// Sessions
		r.Get("/sessions/current", sessionHandler.Current)
		r.Post("/sessions", sessionHandler.Create)

		// Messages
		r.Post("/messages", messageHandler.Send)

		// Sequences
		r.Route("/sequences", func(r chi.Router) {
			r.Get("/", sequenceHandler.List)
			r.Post("/", sequenceHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sequenceHandler.Get)
				r.Put("/", sequenceHandler.Update)
				r.Put("/steps/{stepID}", sequenceHandler.UpdateStep)
			})
		})

		// User profile
		r.Get("/users/profile", userHandler.Profile)
		r.Put("/users/profile", userHandler.UpdateProfile)

		// Event stream
		r.Get("/stream", streamHandler.Stream)
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
