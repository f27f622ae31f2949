package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// MongoDB
	MongoURI string
	DBName   string

	// Redis (asynq queue + retrieval cache)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Gemini (LLM + embeddings)
	GeminiAPIKey          string
	GeminiModel           string
	GeminiTier            string
	GoogleEmbeddingsModel string
	VectorDimensions      int

	// OpenAI (TTS + transcription)
	OpenAIAPIKey   string
	OpenAITTSModel string
	OpenAITTSVoice string

	// Indexing
	ResourcesDir        string
	StateFile           string
	ChunksCollection    string
	MaxChunkSize        int
	ChunkOverlap        int
	MinChunkSize        int
	CompressionEnabled  bool
	ReindexCron         string
	VideoChunkSeconds   int

	// Retrieval
	MaxSearchResults  int
	CandidateMultiple int
	CacheTTLSeconds   int

	// Composition
	MaxTokensResponse int
	MaxTokensAnalysis int

	// Media
	MediaDir            string
	BackgroundImagePath string
	FFmpegPath          string

	// Admin API
	JWTSecret    string
	JWTExpiresIn string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/adaptive_learning"),
		DBName:   getEnv("DB_NAME", "adaptive_learning"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTier:            getEnv("GEMINI_TIER", "free"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		VectorDimensions:      getEnvInt("VECTOR_DIM", 768),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAITTSModel: getEnv("OPENAI_TTS_MODEL", "tts-1"),
		OpenAITTSVoice: getEnv("OPENAI_TTS_VOICE", "alloy"),

		ResourcesDir:       getEnv("RESOURCES_DIR", "./resources"),
		StateFile:          getEnv("INDEX_STATE_FILE", "./files_chat/index_state.json"),
		ChunksCollection:   getEnv("CHUNKS_COLLECTION", "learning_chunks"),
		MaxChunkSize:       getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap:       getEnvInt("CHUNK_OVERLAP", 200),
		MinChunkSize:       getEnvInt("MIN_CHUNK_SIZE", 100),
		CompressionEnabled: getEnvBool("CHUNK_COMPRESSION", true),
		ReindexCron:        getEnv("REINDEX_CRON", "*/10 * * * *"),
		VideoChunkSeconds:  getEnvInt("VIDEO_CHUNK_DURATION", 25),

		MaxSearchResults:  getEnvInt("MAX_SEARCH_RESULTS", 3),
		CandidateMultiple: getEnvInt("CANDIDATE_MULTIPLE", 3),
		CacheTTLSeconds:   getEnvInt("RETRIEVAL_CACHE_TTL", 300),

		MaxTokensResponse: getEnvInt("MAX_TOKENS_RESPONSE", 800),
		MaxTokensAnalysis: getEnvInt("MAX_TOKENS_ANALYSIS", 300),

		MediaDir:            getEnv("MEDIA_DIR", "./files_chat/media"),
		BackgroundImagePath: getEnv("BACKGROUND_IMAGE", "./resources/Infografico-1.jpg"),
		FFmpegPath:          getEnv("FFMPEG_PATH", "ffmpeg"),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTExpiresIn: getEnv("JWT_EXPIRES_IN", "24h"),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required - set it in .env file")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
