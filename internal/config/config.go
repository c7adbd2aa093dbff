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

type Config struct {
	Port                 string
	GoogleAPIKey         string        // Key for the geocoding/places provider
	GeocodeAPIURL        string        // Reverse-geocode endpoint (overridable for tests)
	PlacesAPIURL         string        // Nearby-places endpoint (overridable for tests)
	Language             string        // Provider response language (default "ja")
	CacheTTL             time.Duration // Location cache lifetime (default 24h)
	CacheCleanupInterval time.Duration // In-memory store sweep interval
	RedisAddr            string        // Optional: host:port of a Redis cache store
	RedisPassword        string
	AllowedOrigins       []string
	RateLimitRPS         float64 // Per-IP HTTP rate limit
	RateLimitBurst       int
	ProviderRPS          float64 // Outbound provider rate limit
	MaxUploadSize        int64   // Multipart memory limit in bytes
	WorkerCount          int     // Concurrent pipeline runs per batch
	StampFontPath        string  // Optional TTF override for the stamp face
}

const (
	defaultGeocodeAPIURL = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultPlacesAPIURL  = "https://places.googleapis.com/v1/places:searchNearby"
)

// Load reads configuration from environment variables and .env file.
// It loads the .env file if present, then populates the Config struct.
// Returns an error if required configuration is missing.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		GoogleAPIKey:         getEnv("GOOGLE_API_KEY", ""),
		GeocodeAPIURL:        getEnv("GEOCODE_API_URL", defaultGeocodeAPIURL),
		PlacesAPIURL:         getEnv("PLACES_API_URL", defaultPlacesAPIURL),
		Language:             getEnv("LANGUAGE", "ja"),
		CacheTTL:             getDurationEnv("CACHE_TTL", 24*time.Hour),
		CacheCleanupInterval: getDurationEnv("CACHE_CLEANUP_INTERVAL", time.Hour),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		AllowedOrigins:       getList("ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:         getFloatEnv("RATE_LIMIT_RPS", 10),
		RateLimitBurst:       getIntEnv("RATE_LIMIT_BURST", 20),
		ProviderRPS:          getFloatEnv("PROVIDER_RPS", 10),
		MaxUploadSize:        int64(getIntEnv("MAX_UPLOAD_SIZE_MB", 64)) << 20,
		WorkerCount:          getIntEnv("WORKER_COUNT", 4),
		StampFontPath:        getEnv("STAMP_FONT_PATH", ""),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	// A key is only required when talking to the real provider endpoints.
	if c.GoogleAPIKey == "" && c.GeocodeAPIURL == defaultGeocodeAPIURL {
		return fmt.Errorf("GOOGLE_API_KEY is required")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.CacheCleanupInterval <= 0 {
		return fmt.Errorf("CACHE_CLEANUP_INTERVAL must be positive")
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE_MB must be positive")
	}
	return nil
}

// Retrieves an environment variable or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// Retrieves a duration from environment variable or returns a default value.
// It supports both time.Duration format (e.g., "10m", "24h") and integer minutes.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

// Retrieves a comma-separated list from environment variable or returns a default value.
func getList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// Retrieves an integer from environment variable or returns a default value.
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// Retrieves a float from environment variable or returns a default value.
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
