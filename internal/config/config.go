package config

import (
	"fmt"
	"time"

	"github.com/doppel-dev/doppel/internal/configs/env"
)

// Config holds all configuration for the application
type Config struct {
	// MongoDB
	MongoURI    string
	MongoDBName string

	// Redis
	RedisHost               string
	RedisPassword           string
	RedisStreamKey          string
	RedisConsumerGroup      string
	RedisDeadLetterKey      string
	StreamRetentionDuration time.Duration

	// Embedding Service
	EmbedderBaseURL string
	EmbedderAPIKey  string

	// JWT
	JWTSecret string
	JWTIssuer string

	// Rate Limiting
	RateLimitRPS float64

	// Concurrency
	MaxConcurrentAnalyses int

	// Analysis
	AnalysisTimeout  time.Duration
	Threshold        float64
	MinLines         int
	CrossFile        bool
	Detectors        []string
	FingerprintBits  int
	FingerprintBands int

	// Logging
	LogLevel string

	// Server
	ServerPort string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "localhost:6379")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.RedisStreamKey = env.GetEnv("REDIS_STREAM_KEY", "functions:stream")
	cfg.RedisConsumerGroup = env.GetEnv("REDIS_CONSUMER_GROUP", "functions:group")
	cfg.RedisDeadLetterKey = env.GetEnv("REDIS_DEAD_LETTER_KEY", "functions:dlq")
	retentionHours := env.GetEnvInt("STREAM_RETENTION_HOURS", 24)
	cfg.StreamRetentionDuration = time.Duration(retentionHours) * time.Hour

	// Embedding Service
	cfg.EmbedderBaseURL = env.GetEnv("EMBEDDER_BASE_URL", "")
	cfg.EmbedderAPIKey = env.GetEnv("EMBEDDER_API_KEY", "")

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")
	cfg.JWTIssuer = env.GetEnv("JWT_ISSUER", "doppel")

	// Rate Limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)

	// Concurrency
	cfg.MaxConcurrentAnalyses = env.GetEnvInt("MAX_CONCURRENT_ANALYSES", 5)

	// Analysis
	timeoutMinutes := env.GetEnvInt("ANALYSIS_TIMEOUT_MINUTES", 30)
	cfg.AnalysisTimeout = time.Duration(timeoutMinutes) * time.Minute
	cfg.Threshold = env.GetEnvFloat("SIMILARITY_THRESHOLD", 0.8)
	cfg.MinLines = env.GetEnvInt("MIN_LINES", 3)
	cfg.CrossFile = env.GetEnvBool("CROSS_FILE", true)
	cfg.Detectors = env.GetEnvList("DETECTORS", nil)
	cfg.FingerprintBits = env.GetEnvInt("FINGERPRINT_BITS", 64)
	cfg.FingerprintBands = env.GetEnvInt("FINGERPRINT_BANDS", 8)

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MaxConcurrentAnalyses <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_ANALYSES must be greater than 0")
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be within [0, 1]")
	}
	if c.FingerprintBits != 64 && c.FingerprintBits != 128 {
		return fmt.Errorf("FINGERPRINT_BITS must be 64 or 128")
	}
	if c.FingerprintBands <= 0 || c.FingerprintBits%c.FingerprintBands != 0 {
		return fmt.Errorf("FINGERPRINT_BANDS must divide FINGERPRINT_BITS")
	}
	if c.StreamRetentionDuration <= 0 {
		return fmt.Errorf("STREAM_RETENTION_HOURS must be greater than 0")
	}
	return nil
}
