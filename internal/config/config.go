package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all configuration for the client
type Config struct {
	// Env selects development or production behaviour (debug logging is
	// suppressed in production).
	Env string `env:"ENV" envDefault:"development"`

	API           APIConfig           `envPrefix:"API_"`
	Storage       StorageConfig       `envPrefix:"STORAGE_"`
	Notifications NotificationsConfig `envPrefix:"NOTIFICATIONS_"`
	Logging       LoggingConfig       `envPrefix:"LOG_"`
}

// APIConfig holds backend connection settings
type APIConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:8080/api"`
	Timeout time.Duration `env:"TIMEOUT"  envDefault:"30s"`
	// KeyringService names the OS keychain entry holding the session cookie.
	KeyringService string `env:"KEYRING_SERVICE" envDefault:"coinvest-cli"`
}

// StorageConfig holds the persistent key-value store settings
type StorageConfig struct {
	// Dir defaults to ~/.config/coinvest when empty.
	Dir string `env:"DIR"`
	// PollInterval is how often other processes' writes are picked up;
	// 1s is the minimum.
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
}

// NotificationsConfig holds toast and inbox polling settings
type NotificationsConfig struct {
	TTL          time.Duration `env:"TTL"           envDefault:"5s"`
	MaxActive    int           `env:"MAX_ACTIVE"    envDefault:"50"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `env:"LEVEL"  envDefault:"warn"`
	Format string `env:"FORMAT" envDefault:"console"` // json, console
}

// IsProduction reports whether the client runs with production settings
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// StorageDir returns the resolved storage directory
func (c *Config) StorageDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "coinvest"), nil
}

// Load loads configuration from environment variables prefixed with COINVEST_
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "COINVEST_"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.BaseURL == "" {
		return fmt.Errorf("COINVEST_API_BASE_URL must not be empty")
	}
	switch strings.ToLower(c.Env) {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("invalid COINVEST_ENV %q (valid options: development, production)", c.Env)
	}
	if c.Notifications.MaxActive <= 0 {
		c.Notifications.MaxActive = 50
	}
	// both polls run on cron @every schedules, which have one-second resolution
	if c.Storage.PollInterval < time.Second {
		return fmt.Errorf("COINVEST_STORAGE_POLL_INTERVAL must be at least 1s, got %s", c.Storage.PollInterval)
	}
	if c.Notifications.PollInterval < time.Second {
		return fmt.Errorf("COINVEST_NOTIFICATIONS_POLL_INTERVAL must be at least 1s, got %s", c.Notifications.PollInterval)
	}
	return nil
}

// MockAPIConfig configures the development backend served by cmd/mockapi
type MockAPIConfig struct {
	Addr           string        `env:"ADDR"            envDefault:":8080"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:5173"`
	DatabaseURL    string        `env:"DATABASE_URL"    envDefault:":memory:"`
	SeedFile       string        `env:"SEED_FILE"`
	CookieName     string        `env:"COOKIE_NAME"     envDefault:"coinvest_session"`
	SessionTTL     time.Duration `env:"SESSION_TTL"     envDefault:"24h"`
	// SessionSecret signs session cookies; a random one is generated when empty.
	SessionSecret string `env:"SESSION_SECRET"`

	Logging LoggingConfig `envPrefix:"LOG_"`
}

// LoadMockAPI loads the mock backend configuration from COINVEST_MOCK_*
// variables
func LoadMockAPI() (*MockAPIConfig, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	var cfg MockAPIConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "COINVEST_MOCK_"}); err != nil {
		return nil, fmt.Errorf("failed to parse mock API config: %w", err)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("COINVEST_MOCK_SESSION_TTL must be positive")
	}
	return &cfg, nil
}
