// Package config provides configuration management for the TurtleMessenger
// backend. Settings come from three layers: built-in defaults, an optional
// YAML file (TURTLE_CONFIG_FILE), and environment variables with the
// TURTLE_ prefix. Later layers win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the backend.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Notify  NotifyConfig  `yaml:"notify"`
	Log     LogConfig     `yaml:"log"`
	Limits  LimitsConfig  `yaml:"limits"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host string `yaml:"host"` // default: 127.0.0.1
	Port int    `yaml:"port"` // default: 8080
}

// StorageConfig contains database configuration.
type StorageConfig struct {
	// Engine selects the backend: "sqlite" or "postgres".
	Engine string `yaml:"engine"`

	// DataPath is the SQLite database file path.
	DataPath string `yaml:"dataPath"`

	// PostgresDSN is the connection string when Engine is "postgres".
	PostgresDSN string `yaml:"postgresDsn"`
}

// AuthConfig contains token settings.
type AuthConfig struct {
	// JWTSecret signs both access and refresh tokens.
	JWTSecret string `yaml:"jwtSecret"`

	// AccessTTL is the access-token lifetime.
	AccessTTL time.Duration `yaml:"accessTtl"`

	// RefreshTTL is the refresh-token lifetime.
	RefreshTTL time.Duration `yaml:"refreshTtl"`
}

// NotifyConfig contains webhook notification settings.
type NotifyConfig struct {
	// WebhookURL receives backend events; empty disables delivery.
	WebhookURL string `yaml:"webhookUrl"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// LimitsConfig contains rate limiting settings.
type LimitsConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// Load builds the configuration from defaults, the optional YAML file
// named by TURTLE_CONFIG_FILE, and TURTLE_-prefixed environment
// variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("TURTLE_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Storage: StorageConfig{
			Engine:   "sqlite",
			DataPath: "./data/turtle.db",
		},
		Auth: AuthConfig{
			JWTSecret:  "dev-secret-change-me",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 168 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Limits: LimitsConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("TURTLE_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("TURTLE_PORT", c.Server.Port)

	c.Storage.Engine = getEnv("TURTLE_STORAGE_ENGINE", c.Storage.Engine)
	c.Storage.DataPath = getEnv("TURTLE_DATA_PATH", c.Storage.DataPath)
	c.Storage.PostgresDSN = getEnv("TURTLE_POSTGRES_DSN", c.Storage.PostgresDSN)

	c.Auth.JWTSecret = getEnv("TURTLE_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.AccessTTL = getEnvDuration("TURTLE_ACCESS_TTL", c.Auth.AccessTTL)
	c.Auth.RefreshTTL = getEnvDuration("TURTLE_REFRESH_TTL", c.Auth.RefreshTTL)

	c.Notify.WebhookURL = getEnv("TURTLE_WEBHOOK_URL", c.Notify.WebhookURL)

	c.Log.Level = getEnv("TURTLE_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("TURTLE_LOG_FORMAT", c.Log.Format)

	c.Limits.RequestsPerSecond = getEnvFloat("TURTLE_RATE_LIMIT", c.Limits.RequestsPerSecond)
	c.Limits.Burst = getEnvInt("TURTLE_RATE_BURST", c.Limits.Burst)
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (Go duration
// syntax, e.g. "15m") or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
