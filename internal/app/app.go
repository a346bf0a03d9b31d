// Package app wires configuration into a running service: provider
// selection, the state and knowledge stores, and the orchestrator that
// drives generation. Setup builds the container; Close releases it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"

	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/internal/knowledge"
	"github.com/loomkit/loom/internal/llm"
	"github.com/loomkit/loom/internal/orchestrator"
	"github.com/loomkit/loom/internal/project"
	"github.com/loomkit/loom/internal/state"
)

// closeTimeout bounds the trace flush during shutdown.
const closeTimeout = 5 * time.Second

// App is the wired application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// Genkit is the runtime behind the gemini provider; nil for the
	// openai and mock providers.
	Genkit *genkit.Genkit

	// Generator is the configured provider wrapped with retry and rate
	// limiting.
	Generator llm.Generator

	Knowledge    *knowledge.Store
	Pool         *state.Pool
	Registry     *project.Registry
	Orchestrator *orchestrator.Orchestrator

	traceShutdown func(context.Context) error
}

// Close flushes buffered trace spans. The state and knowledge stores
// write through on every commit, so they need no shutdown step of their
// own.
func (a *App) Close() error {
	if a.traceShutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := a.traceShutdown(ctx); err != nil {
		return fmt.Errorf("flushing traces: %w", err)
	}
	return nil
}
