package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"adaptive-learning-platform/internal/ai"
	"adaptive-learning-platform/internal/config"
	"adaptive-learning-platform/internal/logger"
	"adaptive-learning-platform/internal/telemetry"
	"adaptive-learning-platform/middleware"
	"adaptive-learning-platform/routes"
	"adaptive-learning-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("adaptive-learning-platform")
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to init metrics:", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	// Redis backs the retrieval cache and the reindex queue. Both degrade
	// gracefully when it is unavailable.
	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, running without cache and queue", "error", err)
		redisClient = nil
	}

	ctx := context.Background()

	geminiClient, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTier, metrics)
	if err != nil {
		log.Fatal("Failed to init Gemini client:", err)
	}
	defer geminiClient.Close()

	embedder, err := ai.NewGeminiEmbedder(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to init embedder:", err)
	}
	defer embedder.Close()

	var openaiClient *ai.OpenAIClient
	if cfg.OpenAIAPIKey != "" {
		openaiClient, err = ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAITTSModel, cfg.OpenAITTSVoice)
		if err != nil {
			logger.Warn("OpenAI unavailable, audio/video features disabled", "error", err)
		}
	} else {
		logger.Warn("OPENAI_API_KEY not set, audio/video features disabled")
	}

	// Indexing pipeline
	extractors := services.NewExtractorRegistry()
	extractors.Register(services.TextExtractor{}, ".txt")
	extractors.Register(services.JSONExtractor{}, ".json")
	extractors.Register(services.PDFExtractor{}, ".pdf")
	extractors.Register(services.XLSXExtractor{}, ".xlsx")
	extractors.Register(services.NewImageExtractor(geminiClient), ".png", ".jpg", ".jpeg")
	if openaiClient != nil {
		extractors.Register(services.NewVideoExtractor(openaiClient, cfg.VideoChunkSeconds), ".mp4")
	}

	vectorIndex := services.NewMongoVectorIndex(db, cfg.ChunksCollection, cfg.CompressionEnabled)
	chunker := services.NewChunkingService(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize)
	fingerprints := services.NewFingerprintStore(cfg.StateFile)

	coordinator := services.NewIndexingCoordinator(
		cfg.ResourcesDir, extractors, chunker, embedder, vectorIndex, fingerprints, metrics)

	var cache services.RetrievalCache
	if redisClient != nil {
		redisCache := services.NewRedisRetrievalCache(redisClient, time.Duration(cfg.CacheTTLSeconds)*time.Second)
		cache = redisCache
		coordinator.SetCacheInvalidator(redisCache)
	}

	// Initial pass in the background so startup is not gated on embedding
	// a cold corpus.
	go func() {
		if _, err := coordinator.Reindex(context.Background()); err != nil {
			logger.Error("Initial reindex failed", "error", err)
		}
	}()

	// Retrieval and response pipeline
	retrieval := services.NewRetrievalService(embedder, vectorIndex, cache, metrics, cfg.MaxSearchResults, cfg.CandidateMultiple)
	classifier := services.NewClassifierService(geminiClient, cfg.MaxTokensAnalysis)
	composer := services.NewComposerService(geminiClient, vectorIndex, cfg.MaxTokensResponse)
	interactions := services.NewInteractionStore(db)

	var renderers []services.MediaRenderer
	if openaiClient != nil {
		renderers = append(renderers,
			services.NewAudioGenerator(openaiClient, cfg.MediaDir),
			services.NewVideoGenerator(openaiClient, cfg.FFmpegPath, cfg.BackgroundImagePath, cfg.MediaDir))
	}
	orchestrator := services.NewMediaOrchestrator(renderers, metrics, 5*time.Minute)

	var asynqClient *asynq.Client
	if redisClient != nil {
		asynqClient = asynq.NewClient(asynqRedisOpt(cfg))
		defer asynqClient.Close()
	}

	// HTTP surface
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	routes.SetupChatRoutes(router, &routes.ChatDeps{
		Retrieval:    retrieval,
		Classifier:   classifier,
		Composer:     composer,
		Orchestrator: orchestrator,
		Interactions: interactions,
	})
	routes.SetupMediaRoutes(router, orchestrator, cfg.MediaDir)
	routes.SetupAdminRoutes(router, &routes.AdminDeps{
		Coordinator:  coordinator,
		Interactions: interactions,
		AsynqClient:  asynqClient,
		Auth:         middleware.NewAuthMiddleware(cfg),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}

func asynqRedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	if opt, err := redis.ParseURL(cfg.RedisURL); err == nil {
		return asynq.RedisClientOpt{
			Addr:     opt.Addr,
			Password: opt.Password,
			DB:       opt.DB,
		}
	}
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}
