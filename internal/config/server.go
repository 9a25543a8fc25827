package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ServerConfig is the API server configuration, read from the environment.
type ServerConfig struct {
	Port string `envconfig:"API_PORT" default:"8080"`
	Env  string `envconfig:"API_ENV" default:"development" validate:"oneof=development test production"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// Limits that keep a single request bounded.
	MaxGridPoints   int `envconfig:"MAX_GRID_POINTS" default:"200000" validate:"gt=0"`
	MaxDEIterations int `envconfig:"MAX_DE_ITERATIONS" default:"1000" validate:"gt=0"`
	MaxDEPopSize    int `envconfig:"MAX_DE_POP_SIZE" default:"50" validate:"gt=0"`
	MaxSeriesLength int `envconfig:"MAX_SERIES_LENGTH" default:"105408" validate:"gt=0"` // 12 years hourly

	CatalogFile  string        `envconfig:"HPP_CATALOG_FILE" default:"./data/catalog.json"`
	StorageDir   string        `envconfig:"STORAGE_DIR" default:"./examples/storage"`
	SiteCacheTTL time.Duration `envconfig:"SITE_CACHE_TTL" default:"1h"`
}

// LoadServerConfig loads a .env file if present (existing variables win),
// processes the environment and validates the result.
func LoadServerConfig() (*ServerConfig, error) {
	_ = godotenv.Load()

	var cfg ServerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment configuration: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("server configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *ServerConfig) IsProduction() bool { return c.Env == "production" }

// SlogLevel maps LogLevel to a slog level.
func (c *ServerConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
