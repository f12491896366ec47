package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Notifications.TTL)
	assert.Equal(t, 50, cfg.Notifications.MaxActive)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COINVEST_ENV", "production")
	t.Setenv("COINVEST_API_BASE_URL", "https://api.example.com/api/")
	t.Setenv("COINVEST_STORAGE_DIR", "/tmp/coinvest-test")
	t.Setenv("COINVEST_NOTIFICATIONS_POLL_INTERVAL", "10s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://api.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Notifications.PollInterval)

	dir, err := cfg.StorageDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/coinvest-test", dir)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COINVEST_ENV", "staging")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid COINVEST_ENV")
}

func TestLoad_SubSecondPollIntervalRejected(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("COINVEST_STORAGE_POLL_INTERVAL", "200ms")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COINVEST_STORAGE_POLL_INTERVAL must be at least 1s")

	t.Setenv("COINVEST_STORAGE_POLL_INTERVAL", "2s")
	t.Setenv("COINVEST_NOTIFICATIONS_POLL_INTERVAL", "500ms")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COINVEST_NOTIFICATIONS_POLL_INTERVAL")
}

func TestLoadMockAPI(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COINVEST_MOCK_ADDR", "127.0.0.1:9090")
	t.Setenv("COINVEST_MOCK_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := LoadMockAPI()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, ":memory:", cfg.DatabaseURL)
	assert.Equal(t, "coinvest_session", cfg.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}
