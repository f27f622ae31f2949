package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"adaptive-learning-platform/internal/ai"
	"adaptive-learning-platform/internal/config"
	"adaptive-learning-platform/internal/logger"
	"adaptive-learning-platform/internal/queue"
	"adaptive-learning-platform/internal/telemetry"
	"adaptive-learning-platform/services"
)

// The worker owns the indexing schedule: it serves queued reindex tasks
// and enqueues one itself on a cron interval, so the API process never
// blocks on a long reindex.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

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

	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Worker requires Redis:", err)
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
			logger.Warn("OpenAI unavailable, video sources will be skipped", "error", err)
		}
	}

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

	cache := services.NewRedisRetrievalCache(redisClient, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	coordinator.SetCacheInvalidator(cache)
	processor := queue.NewTaskProcessor(coordinator)

	redisOpt := workerRedisOpt(cfg)

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		Queues: map[string]int{
			queue.QueueIndexing: 1,
			"default":           1,
		},
	})

	// Periodic reindex: enqueue rather than run inline, so manual and
	// scheduled runs go through the same serialized path.
	client := asynq.NewClient(redisOpt)
	defer client.Close()

	scheduler := gocron.NewScheduler(time.UTC)
	if _, err := scheduler.Cron(cfg.ReindexCron).Do(func() {
		task, err := queue.NewReindexTask("scheduled")
		if err != nil {
			logger.Error("Failed to build scheduled reindex task", "error", err)
			return
		}
		if _, err := client.Enqueue(task); err != nil {
			logger.Error("Failed to enqueue scheduled reindex", "error", err)
		}
	}); err != nil {
		log.Fatal("Invalid reindex cron expression:", err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	go func() {
		logger.Info("Worker starting", "cron", cfg.ReindexCron)
		if err := server.Run(processor.Mux()); err != nil {
			log.Fatal("Worker failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Worker shutting down")
	server.Shutdown()
}

func workerRedisOpt(cfg *config.Config) asynq.RedisClientOpt {
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
