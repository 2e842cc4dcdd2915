package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/nfrund/tradedesk/internal/transport"
)

// Transport modes.
const (
	TransportMemory    = "memory"
	TransportWebSocket = "websocket"
)

// Defaults for optional settings.
const (
	DefaultSimAddr     = "127.0.0.1:8765"
	DefaultSimInterval = 2 * time.Second
)

// ErrMissingBackendURL is returned when the websocket transport has nowhere to connect.
var ErrMissingBackendURL = errors.New("BACKEND_URL is required when BRIDGE_TRANSPORT is websocket")

// Config holds all configuration for the application.
type Config struct {
	Transport   string        `validate:"oneof=memory websocket"`
	BackendURL  string        `validate:"omitempty,url"`
	LogFormat   string        `validate:"omitempty,oneof=text json"`
	LogLevel    string        `validate:"omitempty,oneof=debug info warn error"`
	SimAddr     string        `validate:"required,hostname_port"`
	SimInterval time.Duration `validate:"gt=0"`
	Tracing     transport.TracingConfig
}

// New loads the given .env files (".env" when none are named) and then reads the
// configuration from the environment. Missing .env files are not an error.
func New(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv reads and validates the configuration from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Transport:   getenv("BRIDGE_TRANSPORT", TransportMemory),
		BackendURL:  os.Getenv("BACKEND_URL"),
		LogFormat:   os.Getenv("LOG_FORMAT"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		SimAddr:     getenv("SIM_ADDR", DefaultSimAddr),
		SimInterval: DefaultSimInterval,
		Tracing:     transport.LoadTracingConfigFromEnv(),
	}

	if raw := os.Getenv("SIM_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parse SIM_INTERVAL: %w", err)
		}
		cfg.SimInterval = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field formats and the cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Transport == TransportWebSocket && c.BackendURL == "" {
		return ErrMissingBackendURL
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
