package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	SessionTTL         time.Duration
	TranscriptMax      int64
	CORSAllowedOrigins []string
	SeedCSVPath        string
	TurnRateLimit      float64
	TurnRateBurst      int
	ArchiveBucket      string

	// LLM oracle configuration
	LLMProvider    string
	LLMTimeout     time.Duration
	GeminiAPIKey   string
	GeminiModel    string
	BedrockModelID string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		TranscriptMax:      int64(getEnvAsInt("TRANSCRIPT_MAX_MESSAGES", 250)),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		SeedCSVPath:        getEnv("SEED_CSV_PATH", "data/doctor_availability.csv"),
		TurnRateLimit:      getEnvAsFloat("CHAT_RATE_LIMIT_RPS", 2),
		TurnRateBurst:      getEnvAsInt("CHAT_RATE_LIMIT_BURST", 5),
		ArchiveBucket:      getEnv("TRANSCRIPT_ARCHIVE_BUCKET", ""),

		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "gemini"))),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// UseRedis reports whether session state should live in Redis.
func (c *Config) UseRedis() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

// UsePostgres reports whether the appointment table should live in Postgres.
func (c *Config) UsePostgres() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
