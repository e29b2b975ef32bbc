package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pkordes/pueblos-core/internal/config"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "LOG_LEVEL", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS",
		"CORS_ORIGINS", "MAX_BODY_BYTES", "REMOTE_BASE_URL", "REMOTE_USER_ID", "REMOTE_TIMEOUT",
		"REMOTE_RATE_PER_SEC", "STORAGE_DRIVER", "STORAGE_PATH", "DATABASE_URL",
		"NOTIFICATIONS_REFRESH_INTERVAL", "NOTIFICATIONS_STALE_AFTER", "DETAIL_CACHE_TTL",
		"DETAIL_CACHE_SIZE", "PUSH_TOKEN", "DEVICE_PLATFORM",
	} {
		t.Setenv(k, "")
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("REMOTE_BASE_URL", "https://pueblos.example.com/")
	t.Setenv("REMOTE_USER_ID", "17")
}

// TestLoad_defaults verifies that optional env vars fall back to their
// defaults when only the required variables are provided.
func TestLoad_defaults(t *testing.T) {
	clearEnv(t)
	setRequired(t)

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "https://pueblos.example.com", cfg.RemoteBaseURL, "trailing slash trimmed")
	require.Equal(t, "17", cfg.RemoteUserID)
	require.Equal(t, 10*time.Second, cfg.RemoteTimeout)
	require.InDelta(t, 5.0, cfg.RemoteRatePerSec, 0.0001)
	require.Equal(t, config.StorageSQLite, cfg.StorageDriver)
	require.Equal(t, "pueblos.db", filepath.Base(cfg.StoragePath))
	require.Equal(t, 5*time.Minute, cfg.NotificationsRefreshInterval)
	require.Equal(t, 2*time.Minute, cfg.NotificationsStaleAfter)
	require.Equal(t, 10*time.Minute, cfg.DetailCacheTTL)
	require.Equal(t, 256, cfg.DetailCacheSize)
	require.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	require.Equal(t, "android", cfg.DevicePlatform)
	require.Empty(t, cfg.PushToken)
	require.Equal(t, []string{"http://localhost:8081"}, cfg.CORSOrigins)
}

// TestLoad_overrides verifies that values can be overridden via env vars.
func TestLoad_overrides(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://user:pass@db:5432/pueblos")
	t.Setenv("REMOTE_TIMEOUT", "3s")
	t.Setenv("NOTIFICATIONS_STALE_AFTER", "30s")
	t.Setenv("DETAIL_CACHE_SIZE", "8")
	t.Setenv("PUSH_TOKEN", "ExponentPushToken[abc]")
	t.Setenv("DEVICE_PLATFORM", "ios")

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, config.StoragePostgres, cfg.StorageDriver)
	require.Equal(t, "postgres://user:pass@db:5432/pueblos", cfg.DatabaseURL)
	require.Equal(t, 3*time.Second, cfg.RemoteTimeout)
	require.Equal(t, 30*time.Second, cfg.NotificationsStaleAfter)
	require.Equal(t, 8, cfg.DetailCacheSize)
	require.Equal(t, "ExponentPushToken[abc]", cfg.PushToken)
	require.Equal(t, "ios", cfg.DevicePlatform)
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
}

// TestLoad_missingRequired verifies the error names every missing variable.
func TestLoad_missingRequired(t *testing.T) {
	clearEnv(t)

	_, err := config.Load()

	require.Error(t, err)
	require.ErrorContains(t, err, "REMOTE_BASE_URL")
	require.ErrorContains(t, err, "REMOTE_USER_ID")
}

func TestLoad_postgresRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("STORAGE_DRIVER", "postgres")

	_, err := config.Load()

	require.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoad_invalidValues(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("STORAGE_DRIVER", "redis")
	t.Setenv("REMOTE_TIMEOUT", "soon")
	t.Setenv("DETAIL_CACHE_SIZE", "-1")

	_, err := config.Load()

	require.Error(t, err)
	require.ErrorContains(t, err, "STORAGE_DRIVER")
	require.ErrorContains(t, err, "REMOTE_TIMEOUT")
	require.ErrorContains(t, err, "DETAIL_CACHE_SIZE")
}

// TestLoad_dotEnvFillsUnsetVariables runs from a temp dir holding a .env file.
func TestLoad_dotEnvFillsUnsetVariables(t *testing.T) {
	clearEnv(t)
	for _, k := range []string{"REMOTE_BASE_URL", "REMOTE_USER_ID", "PORT"} {
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("PORT", "7070")

	dir := t.TempDir()
	env := "REMOTE_BASE_URL=https://from-dotenv.example.com\nREMOTE_USER_ID=99\nPORT=1111\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() {
		_ = os.Unsetenv("REMOTE_BASE_URL")
		_ = os.Unsetenv("REMOTE_USER_ID")
	})

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, "https://from-dotenv.example.com", cfg.RemoteBaseURL)
	require.Equal(t, "99", cfg.RemoteUserID)
	require.Equal(t, "7070", cfg.Port, "existing environment wins over .env")
}
