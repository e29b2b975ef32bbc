// Package config loads and validates application configuration from
// environment variables, optionally seeded from a .env file.
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

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all configuration values for the server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string
	// LogFile, when set, receives a rotated copy of the log.
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string
	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// RemoteBaseURL is the root of the remote pueblos API. Required.
	RemoteBaseURL string
	// RemoteUserID identifies the user whose visits are reconciled. Required.
	RemoteUserID  string
	RemoteTimeout time.Duration
	// RemoteRatePerSec caps outgoing remote calls; 0 disables the limit.
	RemoteRatePerSec float64

	// StorageDriver is sqlite, postgres or memory. Defaults to sqlite.
	StorageDriver string
	// StoragePath is the SQLite file. Defaults to ~/.pueblos/pueblos.db.
	StoragePath string
	// DatabaseURL is the Postgres connection string. Required for postgres.
	DatabaseURL string

	NotificationsRefreshInterval time.Duration
	NotificationsStaleAfter      time.Duration

	DetailCacheTTL  time.Duration
	DetailCacheSize int

	// PushToken is the device push token registered at startup; empty skips registration.
	PushToken      string
	DevicePlatform string
}

// Load reads configuration from environment variables and returns a Config.
// A .env file in the working directory, if present, fills in variables that
// are not already set. Returns an error listing any required variables that
// are unset and any values that do not parse.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config.Load: reading .env: %w", err)
	}

	p := parser{}
	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       os.Getenv("LOG_FILE"),
		LogMaxSizeMB:  p.int("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: p.int("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: p.int("LOG_MAX_AGE_DAYS", 28),
		CORSOrigins:   splitCSV(getEnv("CORS_ORIGINS", "http://localhost:8081")),
		MaxBodyBytes:  int64(p.int("MAX_BODY_BYTES", 1<<20)),

		RemoteBaseURL:    strings.TrimRight(os.Getenv("REMOTE_BASE_URL"), "/"),
		RemoteUserID:     os.Getenv("REMOTE_USER_ID"),
		RemoteTimeout:    p.duration("REMOTE_TIMEOUT", 10*time.Second),
		RemoteRatePerSec: p.float("REMOTE_RATE_PER_SEC", 5),

		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageSQLite)),
		StoragePath:   getEnv("STORAGE_PATH", defaultStoragePath()),
		DatabaseURL:   os.Getenv("DATABASE_URL"),

		NotificationsRefreshInterval: p.duration("NOTIFICATIONS_REFRESH_INTERVAL", 5*time.Minute),
		NotificationsStaleAfter:      p.duration("NOTIFICATIONS_STALE_AFTER", 2*time.Minute),

		DetailCacheTTL:  p.duration("DETAIL_CACHE_TTL", 10*time.Minute),
		DetailCacheSize: p.int("DETAIL_CACHE_SIZE", 256),

		PushToken:      os.Getenv("PUSH_TOKEN"),
		DevicePlatform: getEnv("DEVICE_PLATFORM", "android"),
	}

	var missing []string
	if cfg.RemoteBaseURL == "" {
		missing = append(missing, "REMOTE_BASE_URL")
	}
	if cfg.RemoteUserID == "" {
		missing = append(missing, "REMOTE_USER_ID")
	}
	switch cfg.StorageDriver {
	case StorageSQLite, StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		p.invalid = append(p.invalid, "STORAGE_DRIVER")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(p.invalid, ", "))
	}
	return cfg, nil
}

// parser collects the names of variables whose values do not parse so Load
// can report them together.
type parser struct {
	invalid []string
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return f
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return d
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pueblos.db"
	}
	return filepath.Join(home, ".pueblos", "pueblos.db")
}
