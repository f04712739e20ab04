package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/jmoran41/dealership-ai-assistant/internal/booking"
	appconfig "github.com/jmoran41/dealership-ai-assistant/internal/config"
	"github.com/jmoran41/dealership-ai-assistant/internal/customers"
	"github.com/jmoran41/dealership-ai-assistant/internal/dialogue"
	"github.com/jmoran41/dealership-ai-assistant/internal/knowledge"
	"github.com/jmoran41/dealership-ai-assistant/internal/messaging"
	"github.com/jmoran41/dealership-ai-assistant/internal/notify"
	"github.com/jmoran41/dealership-ai-assistant/internal/observability/metrics"
	"github.com/jmoran41/dealership-ai-assistant/internal/session"
	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dealership-ai-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Customer history: loaded once at startup, read-only afterwards.
	rows, err := customers.LoadCSVDir(cfg.CustomerDataDir, logger)
	if err != nil {
		logger.Error("failed to load customer data", "dir", cfg.CustomerDataDir, "error", err)
		os.Exit(1)
	}
	customerIndex, err := customers.BuildIndex(rows, logger)
	if err != nil {
		logger.Error("failed to build customer index", "error", err)
		os.Exit(1)
	}
	logger.Info("customer history loaded", "customers", customerIndex.Size())

	// Knowledge base: Redis-backed passages hydrated into an in-memory
	// vector store on demand.
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at startup, retrieval will degrade until it recovers", "error", err)
	}

	var openaiClient *openai.Client
	if cfg.OpenAIAPIKey != "" {
		openaiClient = openai.NewClient(cfg.OpenAIAPIKey)
	} else {
		logger.Warn("OPENAI_API_KEY not set, running in rule-only mode")
	}

	var retriever knowledge.Retriever
	if openaiClient != nil {
		embedder := knowledge.NewOpenAIEmbeddingClient(openaiClient, cfg.EmbedModel)
		vectorStore := knowledge.NewMemoryVectorStore(embedder, logger)
		passageRepo := knowledge.NewRedisPassageRepository(redisClient)
		retriever = knowledge.NewHydratingRetriever(ctx, passageRepo, vectorStore, logger)
	} else {
		retriever = knowledge.NewEmptyRetriever()
	}

	var llm dialogue.LLMClient
	if cfg.OpenAIAPIKey != "" {
		client, err := dialogue.NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.ChatModel)
		if err != nil {
			logger.Error("failed to create LLM client", "error", err)
			os.Exit(1)
		}
		llm = client
		if cfg.FallbackChatModel != "" {
			fallback, err := dialogue.NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.FallbackChatModel)
			if err != nil {
				logger.Error("failed to create fallback LLM client", "error", err)
				os.Exit(1)
			}
			llm = dialogue.NewFallbackLLMClient(client, fallback, logger)
		}
	}

	// Appointments and advisor alerts.
	appointmentStore, err := booking.NewFileStore(cfg.AppointmentsFile)
	if err != nil {
		logger.Error("failed to open appointment store", "path", cfg.AppointmentsFile, "error", err)
		os.Exit(1)
	}
	emailSender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)
	var advisorEmail notify.EmailSender
	if emailSender != nil {
		advisorEmail = emailSender
	}
	advisor := notify.NewAdvisorService(notify.AdvisorConfig{
		Email:        advisorEmail,
		AdvisorEmail: cfg.AdvisorEmail,
		Sender:       messaging.NewLogSender(logger),
		ChannelID:    cfg.AdvisorChannelID,
		Logger:       logger,
	})

	// Sessions with background eviction.
	sessions := session.NewStore(cfg.SessionIdleTTL, logger)
	sessions.StartEviction(ctx, cfg.EvictionInterval)

	dialogueMetrics := metrics.NewDialogueMetrics(nil)

	orchestrator := dialogue.NewOrchestrator(dialogue.OrchestratorDeps{
		Sessions:     sessions,
		Router:       dialogue.NewIntentRouter(llm, cfg.ChatModel, logger),
		Extractor:    dialogue.NewSlotExtractor(llm, cfg.ChatModel, logger),
		Escalations:  dialogue.NewEscalationDetector(logger),
		Synthesizer:  dialogue.NewAnswerSynthesizer(retriever, llm, cfg.ChatModel, cfg.RetrievalTopK, logger),
		Customers:    customerIndex,
		Appointments: appointmentStore,
		Notifier:     advisor,
		Metrics:      dialogueMetrics,
		Logger:       logger,
	})

	messagingHandler := messaging.NewHandler(orchestrator, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.UpstreamTimeout + 10*time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Group(messagingHandler.Routes)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
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
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
