package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	chromem "github.com/philippgille/chromem-go"
	"golang.org/x/time/rate"

	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/internal/knowledge"
	"github.com/loomkit/loom/internal/llm"
	"github.com/loomkit/loom/internal/observability"
	"github.com/loomkit/loom/internal/orchestrator"
	"github.com/loomkit/loom/internal/project"
	"github.com/loomkit/loom/internal/state"
)

// Setup creates and initializes the application from configuration.
// Returns an App with embedded cleanup; call Close to release it.
//
// The context scopes background work started here: state watchers stop
// and the trace exporter drains when it is canceled.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	logger := slog.Default()
	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	shutdown, err := observability.SetupTracing(ctx, observability.TracingConfig{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Telemetry.Environment,
		Insecure:    cfg.Telemetry.Insecure,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.traceShutdown = shutdown

	gen, embed, err := provideProvider(ctx, a)
	if err != nil {
		return nil, err
	}
	a.Generator = provideRetrier(cfg, gen, logger)

	kb, err := provideKnowledge(ctx, cfg, embed, logger)
	if err != nil {
		return nil, err
	}
	a.Knowledge = kb

	a.Pool = providePool(ctx, cfg, embed, logger)

	registry, err := project.NewRegistry(cfg.DataDir, logger)
	if err != nil {
		return nil, err
	}
	a.Registry = registry

	orch, err := orchestrator.New(orchestrator.Config{
		Generator:      a.Generator,
		Knowledge:      kb,
		Logger:         logger,
		RuntimeCheck:   cfg.RuntimeCheck,
		KnowledgeLimit: cfg.Knowledge.Limit,
		RetrieveLimit:  cfg.Retrieval.Limit,
	})
	if err != nil {
		return nil, err
	}
	a.Orchestrator = orch

	return a, nil
}

// provideProvider builds the generation backend and the embedding
// function shared by both semantic indexes. The gemini path also stores
// the Genkit runtime on the App for callers that need it.
func provideProvider(ctx context.Context, a *App) (llm.Generator, chromem.EmbeddingFunc, error) {
	cfg := a.Config

	switch cfg.Provider {
	case config.ProviderGemini:
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, nil, errors.New("initializing genkit with gemini provider")
		}
		a.Genkit = g

		gen, err := llm.NewGeminiGenerator(g, cfg.FullModelName())
		if err != nil {
			return nil, nil, err
		}
		embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
		if embedder == nil {
			return nil, nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
		}
		a.Logger.Info("gemini provider ready", "model", cfg.ModelName, "embedder", cfg.EmbedderModel)
		return gen, knowledge.NewEmbeddingFunc(embedder), nil

	case config.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		gen, err := llm.NewOpenAIGenerator(apiKey, cfg.ModelName, "")
		if err != nil {
			return nil, nil, err
		}
		a.Logger.Info("openai provider ready", "model", cfg.ModelName)
		return gen, chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI3Small), nil

	case config.ProviderMock:
		a.Logger.Info("mock provider ready", "note", "canned generation, local embeddings")
		return &llm.MockGenerator{}, knowledge.LocalEmbeddingFunc(knowledge.LocalDim), nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, cfg.Provider)
	}
}

// provideRetrier wraps the raw generator with exponential backoff and,
// when configured, a proactive rate limiter shared across requests.
func provideRetrier(cfg *config.Config, gen llm.Generator, logger *slog.Logger) llm.Generator {
	var limiter *rate.Limiter
	if rpm := cfg.Retry.RatePerMinute; rpm > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
	}
	return llm.NewRetrier(gen, llm.RetryConfig{
		MaxRetries:      cfg.Retry.MaxRetries,
		InitialInterval: cfg.Retry.InitialInterval(),
		MaxInterval:     cfg.Retry.MaxInterval(),
	}, limiter, logger)
}

// provideKnowledge opens the advisory knowledge base under the data
// directory and seeds it from the configured file when it is empty.
func provideKnowledge(ctx context.Context, cfg *config.Config, embed chromem.EmbeddingFunc, logger *slog.Logger) (*knowledge.Store, error) {
	kb, err := knowledge.New(filepath.Join(cfg.DataDir, "knowledge"), embed, logger)
	if err != nil {
		return nil, fmt.Errorf("opening knowledge base: %w", err)
	}

	if cfg.Knowledge.SeedFile != "" {
		entries, err := knowledge.LoadSeedFile(cfg.Knowledge.SeedFile)
		if err != nil {
			return nil, err
		}
		if err := kb.Seed(ctx, entries); err != nil {
			return nil, err
		}
	}
	return kb, nil
}

// providePool builds the per-project state store pool. Stores open
// lazily on first use; with watching enabled each one also gets a file
// watcher scoped to ctx.
func providePool(ctx context.Context, cfg *config.Config, embed chromem.EmbeddingFunc, logger *slog.Logger) *state.Pool {
	pool := state.NewPool(cfg.DataDir,
		state.WithLogger(logger),
		state.WithEmbeddingFunc(embed),
		state.WithRetention(cfg.Retention.KeepInactive, cfg.Retention.CleanupEvery),
		state.WithMinSimilarity(cfg.Retrieval.MinSimilarity),
	)
	if cfg.Watch {
		if err := pool.Watch(ctx); err != nil {
			logger.Warn("state watching unavailable", "error", err)
		}
	}
	return pool
}
