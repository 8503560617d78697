package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wabridge/relay-server-go/internal/config"
	"github.com/wabridge/relay-server-go/internal/database"
	"github.com/wabridge/relay-server-go/internal/handler"
	"github.com/wabridge/relay-server-go/internal/jobs"
	"github.com/wabridge/relay-server-go/internal/middleware"
	"github.com/wabridge/relay-server-go/internal/redis"
	"github.com/wabridge/relay-server-go/internal/repository"
	"github.com/wabridge/relay-server-go/internal/service"
	"github.com/wabridge/relay-server-go/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("APP_ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	instanceRepo := repository.NewInstanceRepository(db.DB)
	contactRepo := repository.NewContactRepository(db.DB)
	convRepo := repository.NewConversationRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)
	operatorRepo := repository.NewOperatorRepository(db.DB)
	bridgeLinkRepo := repository.NewBridgeLinkRepository(db.DB)
	inboxConfigRepo := repository.NewInboxConfigRepository(db.DB)
	handoffLogRepo := repository.NewHandoffLogRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	gateway := service.NewGatewayClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.OutboundTimeout())
	workflow := service.NewWorkflowClient(cfg.WorkflowBaseURL, cfg.OutboundTimeout())
	inbox := service.NewInboxClient(cfg.OutboundTimeout())

	store := service.NewConversationStore(db, instanceRepo, contactRepo, convRepo, messageRepo)
	bridge := service.NewInboxBridge(inboxConfigRepo, bridgeLinkRepo, db, inbox, gateway, cfg.EncryptionKey)
	dispatcher := service.NewDispatcher(workflow, gateway, operatorRepo, handoffLogRepo)
	deduper := service.NewRedisDeduper(redisClient, cfg.DedupeTTL())
	router := service.NewRouter(store, deduper, bridge, dispatcher, broker)
	console := service.NewConsoleService(store, gateway, broker)

	authMiddleware := middleware.NewAuthMiddleware(operatorRepo)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, config.DefaultRateLimitPerMin)
	signatureMiddleware := middleware.NewSignatureMiddleware(cfg.WebhookSecret, 0)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	webhookHandler := handler.NewGatewayWebhookHandler(router)
	inboxWebhookHandler := handler.NewInboxWebhookHandler(bridge)
	operatorHandler := handler.NewOperatorHandler(console)
	eventsHandler := handler.NewEventsHandler(broker)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(signatureMiddleware.Handler)

		r.Post("/webhook/{instanceName}", webhookHandler.Webhook)
		r.Post("/inbox/webhook/{instanceName}", inboxWebhookHandler.Webhook)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(securityHeadersMiddleware.Handler)
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Use(bodyLimitMiddleware.Handler)

		r.With(chimiddleware.Timeout(config.ServerRequestTimeout)).Mount("/conversations", operatorHandler.Routes())
		r.Get("/events", eventsHandler.ServeHTTP)
	})

	cleanupJob := jobs.NewCleanupJob(handoffLogRepo, cfg.HandoffLogRetention(), cfg.RetentionSchedule)
	if err := cleanupJob.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start cleanup job")
	}
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
