// Package cmd implements the loom command line interface.
//
// Commands:
//   - serve: HTTP API server with graceful shutdown
//   - generate: one-shot generation against a project
//   - projects: registry management (create, list, delete)
//   - state: project state inspection
//   - version: build and provider information
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/app"
	"github.com/loomkit/loom/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Versioned artifact store with LLM-backed file generation",
	Long: `Loom keeps every file of a project as a versioned artifact and lets a
model rewrite them under guardrails: user-owned files are never silently
overwritten, and every proposal passes a validation chain before commit.

Run "loom serve" for the HTTP API or "loom generate" for one-shot use.`,

	// main prints the returned error once; keep cobra quiet.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.
func Execute() error {
	initLogger()
	return rootCmd.Execute()
}

// initLogger installs the default text logger. Setting DEBUG in the
// environment lowers the level.
func initLogger() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// setupApp loads configuration and wires the application for a command.
// The caller owns the returned App and must Close it.
func setupApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}

// closeApp releases the app, logging rather than failing on flush errors.
func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		a.Logger.Warn("shutdown error", "error", err)
	}
}
