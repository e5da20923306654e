package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// Participants
	ParticipantA string
	ParticipantB string

	// Presence & read tracking
	LivenessWindow time.Duration
	AckPolicy      string // "monotonic" or "unconditional"
	SeedWatermarks bool   // treat messages pending at startup as already seen

	// Persistence
	StoreBackend      string // file, sqlite, postgres, redis or memory
	StateFile         string
	SQLitePath        string
	DatabaseURL       string
	RedisURL          string
	PersistencePolicy string // "best_effort" or "strict"

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
	RateLimitAutoBlock bool     // block IPs that keep hitting the limit
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// It panics on values that cannot be used.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "5000"),
		Env:                getEnv("ENV", "development"),
		ParticipantA:       getEnv("PARTICIPANT_A", "marti"),
		ParticipantB:       getEnv("PARTICIPANT_B", "ella"),
		AckPolicy:          getEnv("ACK_POLICY", "monotonic"),
		SeedWatermarks:     getEnv("SEED_WATERMARKS", "true") == "true",
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", "file")),
		StateFile:          getEnv("STATE_FILE", "./data/state.json"),
		SQLitePath:         getEnv("SQLITE_PATH", "./data/buzon.db"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		PersistencePolicy:  getEnv("PERSISTENCE_POLICY", "best_effort"),
		RateLimitAutoBlock: getEnv("RATE_LIMIT_AUTOBLOCK", "false") == "true",
	}

	window, err := time.ParseDuration(getEnv("LIVENESS_WINDOW", "30s"))
	if err != nil || window <= 0 {
		panic("LIVENESS_WINDOW must be a positive duration such as 30s")
	}
	cfg.LivenessWindow = window

	// Parse whitelist (comma-separated IPs or CIDRs)
	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.RateLimitWhitelist = append(cfg.RateLimitWhitelist, entry)
			}
		}
	}

	// Backends that need a connection string must have one
	switch cfg.StoreBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case "redis":
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required when STORE_BACKEND=redis")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
