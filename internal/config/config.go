package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration parsed from environment variables.
type Config struct {
	// APIBaseURL is the storefront backend the client talks to.
	APIBaseURL string

	// StateBackend selects where client-local snapshots live: file, redis
	// or memory.
	StateBackend   string
	StatePath      string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	// Dev backend stub settings.
	HTTPAddr        string
	AllowedOrigin   string
	ShutdownTimeout time.Duration
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// FromEnv builds Config with defaults, overridden by environment variables.
// A .env file in the working directory is loaded first when present.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		APIBaseURL:      envOrDefault("API_BASE_URL", "http://localhost:8080/api"),
		StateBackend:    envOrDefault("STATE_BACKEND", "file"),
		StatePath:       envOrDefault("STATE_PATH", defaultStatePath()),
		RedisAddr:       envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         envInt("REDIS_DB", 0),
		RedisKeyPrefix:  envOrDefault("REDIS_KEY_PREFIX", "hireshop"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		AllowedOrigin:   envOrDefault("ALLOWED_ORIGIN", "http://localhost:3000"),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second),
		AccessTokenTTL:  envDuration("ACCESS_TOKEN_TTL_SECONDS", time.Hour),
		RefreshTokenTTL: envDuration("REFRESH_TOKEN_TTL_SECONDS", 30*24*time.Hour),
	}
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "hireshop-state.json"
	}
	return filepath.Join(dir, "hireshop", "state.json")
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		seconds, err := strconv.Atoi(v)
		if err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return def
}
