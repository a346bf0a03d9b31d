package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/api"
	"github.com/loomkit/loom/internal/app"
	"github.com/loomkit/loom/internal/config"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve [addr]",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server.

The listen address comes from the config file ("addr"), the --addr flag,
or a positional argument, in rising priority. The default is ` + config.DefaultAddr + `,
loopback only: the server carries no authentication layer.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address host:port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr := cfg.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	if len(args) == 1 {
		addr = args[0]
	}
	if err := validateAddr(addr); err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer closeApp(a)

	a.Logger.Info("starting HTTP API server",
		"version", AppVersion, "provider", cfg.Provider, "model", cfg.ModelName)

	srv, err := api.NewServer(api.Config{
		Logger:       a.Logger,
		Orchestrator: a.Orchestrator,
		Pool:         a.Pool,
		Registry:     a.Registry,
		Knowledge:    a.Knowledge,
		Version:      AppVersion,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	return srv.Run(ctx, addr)
}
