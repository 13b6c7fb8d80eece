// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package cli defines the classifieds command tree: the API server, the
// mail worker and the maintenance commands that share its configuration.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"classifieds/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "classifieds",
	Short: "Classifieds marketplace API",
	Long: `Classifieds serves the marketplace REST API and runs its maintenance
tasks. Configuration is read from the environment (and a .env file in
development).`,
	SilenceUsage: true,
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the process logger:
// text in development, JSON elsewhere.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	return cfg, nil
}
