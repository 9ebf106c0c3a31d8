// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// LogFormat selects the log handler: "json" (default) or "text".
	LogFormat string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Defaults to 10 MiB.
	MaxBodyBytes int64

	// CacheTTL is how long a loaded itinerary stays in the read cache.
	// Defaults to 30s.
	CacheTTL time.Duration

	// DefaultProfileID is used for requests without a profileId.
	DefaultProfileID string
}

// PlannerConfig holds the configuration of the planner CLI.
type PlannerConfig struct {
	// APIURL is the base URL of the itinerary API. Empty means offline:
	// changes are kept in the local snapshot only.
	APIURL string

	// ProfileID names the remote itinerary. Defaults to "default-user".
	ProfileID string

	// DataDir holds the local snapshot when RedisAddr is empty.
	// Defaults to $XDG_CONFIG_HOME/itinerary-planner (os.UserConfigDir).
	DataDir string

	// RedisAddr, when set, stores the local snapshot in Redis instead of DataDir.
	RedisAddr string

	// Debounce is the quiet period before an automatic save. Defaults to 1.5s.
	Debounce time.Duration

	// SaveTimeout bounds one remote load or save. Defaults to 10s.
	SaveTimeout time.Duration

	// LogLevel controls the minimum log level. Defaults to "warn".
	LogLevel string
}

// LoadDotEnv loads variables from the given .env files (".env" when none is
// given) without overriding variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config.LoadDotEnv: %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set or that
// cannot be parsed.
func Load() (Config, error) {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		DefaultProfileID: getEnv("DEFAULT_PROFILE_ID", "default-user"),
	}

	var problems []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}

	var err error
	if cfg.MaxBodyBytes, err = getInt64("MAX_BODY_BYTES", 10<<20); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 30*time.Second); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat))
	}

	if len(problems) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

// LoadPlanner reads the planner CLI configuration from environment variables.
func LoadPlanner() (PlannerConfig, error) {
	cfg := PlannerConfig{
		APIURL:    strings.TrimRight(os.Getenv("PLANNER_API_URL"), "/"),
		ProfileID: getEnv("PLANNER_PROFILE_ID", "default-user"),
		RedisAddr: os.Getenv("PLANNER_REDIS_ADDR"),
		LogLevel:  getEnv("LOG_LEVEL", "warn"),
	}

	var problems []string

	cfg.DataDir = os.Getenv("PLANNER_DATA_DIR")
	if cfg.DataDir == "" && cfg.RedisAddr == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			problems = append(problems, "PLANNER_DATA_DIR is required when no user config directory exists")
		} else {
			cfg.DataDir = filepath.Join(base, "itinerary-planner")
		}
	}

	var err error
	if cfg.Debounce, err = getDuration("PLANNER_DEBOUNCE", 1500*time.Millisecond); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.SaveTimeout, err = getDuration("PLANNER_SAVE_TIMEOUT", 10*time.Second); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return PlannerConfig{}, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s must be a non-negative duration, got %q", key, v)
	}
	return d, nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
