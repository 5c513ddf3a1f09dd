package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aquashine/carwash-ai-platform/cmd/mainconfig"
	"github.com/aquashine/carwash-ai-platform/internal/api/router"
	"github.com/aquashine/carwash-ai-platform/internal/app/bootstrap"
	"github.com/aquashine/carwash-ai-platform/internal/booking"
	appconfig "github.com/aquashine/carwash-ai-platform/internal/config"
	"github.com/aquashine/carwash-ai-platform/internal/conversation"
	"github.com/aquashine/carwash-ai-platform/internal/http/handlers"
	"github.com/aquashine/carwash-ai-platform/internal/observability/metrics"
	"github.com/aquashine/carwash-ai-platform/internal/requests"
	"github.com/aquashine/carwash-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting carwash-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Persistence. Every store degrades to an in-memory variant so the server
	// still runs on a laptop with no infrastructure.
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	sessionStore := bootstrap.BuildSessionStore(redisClient, cfg, logger)

	var pool *pgxpool.Pool
	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		sqlDB, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open sql db", "error", err)
			os.Exit(1)
		}
		defer func() { _ = sqlDB.Close() }()
	}
	requestRepo := bootstrap.BuildRequestRepository(pool, logger)

	var transcripts conversation.TranscriptStore
	var adminTranscripts *handlers.AdminTranscriptsHandler
	if store := bootstrap.BuildTranscriptStore(sqlDB); store != nil {
		transcripts = store
		adminTranscripts = handlers.NewAdminTranscriptsHandler(store, logger)
	}

	registry := prometheus.NewRegistry()
	conversationMetrics := metrics.NewConversationMetrics(registry)

	// AWS wiring is lazy: only touched when the SQS queue or Bedrock
	// collaborators are enabled.
	var collaborators *conversation.BedrockCollaborators
	var sqsQueue *conversation.SQSQueue
	if !cfg.UseMemoryQueue || cfg.BedrockModelID != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		if cfg.BedrockModelID != "" {
			collaborators = conversation.NewBedrockCollaborators(
				bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		}
		if !cfg.UseMemoryQueue {
			sqsQueue = conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ConversationQueue)
		}
	}

	required := booking.ParseRequiredFields(cfg.RequiredFields)

	engineCfg := conversation.EngineConfig{
		Store:     sessionStore,
		Finalizer: requests.NewService(requestRepo, booking.NewBuilder(required), logger),
		Logger:    logger,

		Transcripts: transcripts,
		Metrics:     conversationMetrics,

		RequiredFields:           required,
		TriggerPhrases:           cfg.TriggerPhrases,
		AllowPartialConfirmation: cfg.AllowPartialConfirmation,
		ConfidenceFloor:          cfg.ConfidenceFloor,
		CollaboratorTimeout:      cfg.CollaboratorTimeout,
	}
	if collaborators != nil {
		engineCfg.Classifier = collaborators
		engineCfg.Extractor = collaborators
		engineCfg.Sentiment = collaborators
		engineCfg.Oracle = collaborators
	}
	engine := conversation.NewEngine(engineCfg)

	var dispatcher conversation.Dispatcher
	if sqsQueue != nil {
		dispatcher = conversation.NewOrchestrator(engine, sqsQueue, logger,
			conversation.WithWorkerCount(cfg.WorkerCount))
	} else {
		dispatcher = conversation.NewOrchestrator(engine, conversation.NewMemoryQueue(0), logger,
			conversation.WithWorkerCount(cfg.WorkerCount))
	}

	r := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(dispatcher, logger),
		AdminRequests:       handlers.NewAdminRequestsHandler(requestRepo, logger),
		AdminTranscripts:    adminTranscripts,
		AdminAuthSecret:     cfg.AdminJWTSecret,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}
