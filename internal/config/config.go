package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/nfrund/rxbus/internal/pubsub"
)

const (
	BackendMemory    = "memory"
	BackendWatermill = "watermill"
)

// Config holds all configuration for the bus.
type Config struct {
	Backend         string `validate:"oneof=memory watermill"`
	WatermillBuffer int64  `validate:"gte=0"`
	LogFormat       string `validate:"oneof=text json"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	Tracing         pubsub.TracingConfig
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		Backend:         BackendMemory,
		WatermillBuffer: 64,
		LogFormat:       "text",
		LogLevel:        "info",
		Tracing:         pubsub.DefaultTracingConfig(),
	}
}

// New loads configuration from a .env file (if present) and environment variables.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// slog is not configured yet; the standard logger is fine here.
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*Config, error) {
	cfg := Default()

	if backend := os.Getenv("BUS_BACKEND"); backend != "" {
		cfg.Backend = backend
	}
	if buf := os.Getenv("BUS_WATERMILL_BUFFER"); buf != "" {
		n, err := strconv.ParseInt(buf, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: BUS_WATERMILL_BUFFER: %w", err)
		}
		cfg.WatermillBuffer = n
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	cfg.Tracing = pubsub.LoadTracingConfigFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: invalid configuration: %w", err)
	}
	return nil
}
