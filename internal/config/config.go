package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Bedrock    BedrockConfig
	RateLimit  RateLimitConfig
	Triage     TriageConfig
	Locator    LocatorConfig
	Logging    LoggingConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, takes precedence over the fields below
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
}

// BedrockConfig holds the LLM vendor configuration
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Stage1Model     string
	Stage2Model     string
	Temperature     float64
	TopP            float64
	MaxTokens       int
	ConnectTimeout  time.Duration
	AttemptTimeout  time.Duration
	Enabled         bool
}

// RateLimitConfig holds token bucket, quota and retry tuning
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	DailyQuota        int // 0 means unlimited
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	AcquireTimeout    time.Duration
}

// TriageConfig holds orchestrator settings
type TriageConfig struct {
	Stage1MaxTokens int
	Stage2MaxTokens int
	RequestTimeout  time.Duration
	CacheSecret     string
}

// LocatorConfig holds facility search settings
type LocatorConfig struct {
	MinQuality          float64
	DefaultLimit        int
	MaxLimit            int
	EmbeddingDimensions int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", ""),
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvAsInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "postgres"),
			Password:           getEnv("DB_PASSWORD", ""),
			Database:           getEnv("DB_NAME", "healthcare"),
			SSLMode:            getEnv("DB_SSLMODE", "require"),
			MaxConnections:     getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8000),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Bedrock: BedrockConfig{
			Region:          getEnv("AWS_REGION", "ap-south-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			SessionToken:    getEnv("AWS_SESSION_TOKEN", ""),
			Stage1Model:     getEnv("STAGE1_MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0"),
			Stage2Model:     getEnv("STAGE2_MODEL_ID", "anthropic.claude-3-sonnet-20240229-v1:0"),
			Temperature:     getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			TopP:            getEnvAsFloat("LLM_TOP_P", 0.9),
			MaxTokens:       getEnvAsInt("LLM_MAX_TOKENS", 1024),
			ConnectTimeout:  getEnvAsDuration("LLM_CONNECT_TIMEOUT", 30*time.Second),
			AttemptTimeout:  getEnvAsDuration("LLM_ATTEMPT_TIMEOUT", 60*time.Second),
			Enabled:         getEnvAsBool("LLM_ENABLED", true),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 5),
			BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 10),
			DailyQuota:        getEnvAsInt("DAILY_QUOTA", 0),
			MaxRetries:        getEnvAsInt("MAX_RETRIES", 5),
			BaseDelay:         getEnvAsDuration("RETRY_BASE_DELAY", time.Second),
			MaxDelay:          getEnvAsDuration("RETRY_MAX_DELAY", 60*time.Second),
			AcquireTimeout:    getEnvAsDuration("RATE_LIMIT_ACQUIRE_TIMEOUT", 120*time.Second),
		},
		Triage: TriageConfig{
			Stage1MaxTokens: getEnvAsInt("STAGE1_MAX_TOKENS", 500),
			Stage2MaxTokens: getEnvAsInt("STAGE2_MAX_TOKENS", 800),
			RequestTimeout:  getEnvAsDuration("TRIAGE_REQUEST_TIMEOUT", 180*time.Second),
			CacheSecret:     getEnv("STAGE1_CACHE_SECRET", ""),
		},
		Locator: LocatorConfig{
			MinQuality:          getEnvAsFloat("FACILITY_MIN_QUALITY", 0.3),
			DefaultLimit:        getEnvAsInt("FACILITY_DEFAULT_LIMIT", 20),
			MaxLimit:            getEnvAsInt("FACILITY_MAX_LIMIT", 50),
			EmbeddingDimensions: getEnvAsInt("FACILITY_EMBEDDING_DIMENSIONS", 1024),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %v", c.RateLimit.RequestsPerSecond)
	}
	if c.RateLimit.BurstSize < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1, got %d", c.RateLimit.BurstSize)
	}
	if c.RateLimit.DailyQuota < 0 {
		return fmt.Errorf("DAILY_QUOTA must not be negative, got %d", c.RateLimit.DailyQuota)
	}
	if c.RateLimit.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1, got %d", c.RateLimit.MaxRetries)
	}
	if c.Locator.MinQuality < 0 || c.Locator.MinQuality > 1 {
		return fmt.Errorf("FACILITY_MIN_QUALITY must be within [0,1], got %v", c.Locator.MinQuality)
	}
	return nil
}

// DatabaseEnabled reports whether enough settings exist to reach PostgreSQL
func (c *Config) DatabaseEnabled() bool {
	return c.PostgreSQL.DSN != "" || c.PostgreSQL.Password != ""
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("90s", "2m") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	if secs, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return value
}
