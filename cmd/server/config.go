package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskpulse/internal/config"
)

// loadAppConfig loads the application configuration from the environment,
// an optional .env file and an optional config.yaml.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel))
	slog.Debug("realtime configuration",
		slog.Duration("write_timeout", cfg.Realtime.WriteTimeout),
		slog.Duration("ping_interval", cfg.Realtime.PingInterval),
		slog.Int("queue_size", cfg.Realtime.QueueSize))

	return cfg, nil
}
