package cmd

import (
	"fmt"

	"github.com/nfrund/rxbus/internal/app"
	"github.com/nfrund/rxbus/internal/config"
	"github.com/nfrund/rxbus/internal/logging"
)

var backendFlag string

// newApp loads configuration, applies CLI overrides and wires the bus.
func newApp() (*app.App, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	if backendFlag != "" {
		cfg.Backend = backendFlag
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logging.New(cfg.LogFormat, cfg.LogLevel)

	a, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start bus: %w", err)
	}
	return a, nil
}
