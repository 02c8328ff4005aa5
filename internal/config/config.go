package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
// All sensitive values are loaded from .env
type Config struct {
	// Server configuration
	Environment string
	ServerPort  string

	// DB configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Application settings
	BaseURL            string        // Base URL for generating short links
	ShortCodeLength    int           // Length of generated short codes
	MaxGenerateRetries int           // Collision retry budget for generated codes
	StoreTimeout       time.Duration // Bounded timeout for record store operations
	RateLimitPerMinute int           // Rate limit per IP address
	EnableAuth         bool          // Enable API key authentication on mutating routes
	APIKey             string        // API key for protected endpoints

	// Click tracking pipeline
	TrackingWorkers int // Number of background click workers
	TrackingBuffer  int // Bounded job queue capacity
}

// LoadConfig loads configuration from environment variables
// Returns error if required environment variables are missing
func LoadConfig() (*Config, error) {
	cfg := &Config{
		// Server defaults
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),

		// Database configuration
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "shortlink"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		// Redis configuration
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		CacheTTL:      time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 86400)) * time.Second,

		// Application settings
		BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
		ShortCodeLength:    getEnvAsInt("SHORT_CODE_LENGTH", 6),
		MaxGenerateRetries: getEnvAsInt("MAX_GENERATE_RETRIES", 5),
		StoreTimeout:       time.Duration(getEnvAsInt("STORE_TIMEOUT_SECONDS", 5)) * time.Second,
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
		EnableAuth:         getEnvAsBool("ENABLE_AUTH", false),
		APIKey:             getEnv("API_KEY", ""),

		// Click tracking pipeline
		TrackingWorkers: getEnvAsInt("TRACKING_WORKERS", 4),
		TrackingBuffer:  getEnvAsInt("TRACKING_BUFFER", 1024),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Environment == "production" && c.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required in production")
	}

	// Generated codes must fit the short_code column and stay collision-resistant
	if c.ShortCodeLength < 4 || c.ShortCodeLength > 10 {
		return fmt.Errorf("SHORT_CODE_LENGTH must be between 4 and 10, got %d", c.ShortCodeLength)
	}

	if c.MaxGenerateRetries < 1 {
		return fmt.Errorf("MAX_GENERATE_RETRIES must be at least 1, got %d", c.MaxGenerateRetries)
	}

	if c.BaseURL == "" {
		return fmt.Errorf("BASE_URL is required")
	}

	if c.EnableAuth && c.APIKey == "" {
		return fmt.Errorf("API_KEY is required when ENABLE_AUTH is true")
	}

	if c.TrackingWorkers < 1 {
		return fmt.Errorf("TRACKING_WORKERS must be at least 1, got %d", c.TrackingWorkers)
	}

	if c.TrackingBuffer < 1 {
		return fmt.Errorf("TRACKING_BUFFER must be at least 1, got %d", c.TrackingBuffer)
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions for reading environment variables

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer or returns default
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBool reads an environment variable as boolean or returns default
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
