// Package api exposes the generation pipeline over a JSON HTTP API.
//
// The surface is deliberately small: project CRUD, state inspection,
// prompt preview, generation, and knowledge base access. Health and
// metrics endpoints sit outside the middleware stack so probes stay
// cheap and unlogged.
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (request id, logging, metrics, recovery)
//   - health.go: Health check endpoint (/healthz)
//   - projects.go: Project CRUD endpoints
//   - generate.go: Generation and prompt preview endpoints
//   - state.go: Project state inspection endpoint
//   - knowledge.go: Knowledge base endpoints
//   - response.go: JSON response helpers and error mapping
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/loomkit/loom/internal/knowledge"
	"github.com/loomkit/loom/internal/observability"
	"github.com/loomkit/loom/internal/orchestrator"
	"github.com/loomkit/loom/internal/project"
	"github.com/loomkit/loom/internal/state"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:3400"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Generation requests block on the model provider, so this is the
	// ceiling on one generation call end to end.
	WriteTimeout = 5 * time.Minute

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Config contains the dependencies for the API server.
type Config struct {
	Logger       *slog.Logger
	Orchestrator *orchestrator.Orchestrator // required
	Pool         *state.Pool                // required
	Registry     *project.Registry          // required
	Knowledge    *knowledge.Store           // optional: nil disables /v1/knowledge
	Version      string                     // reported by /healthz
}

// Server is the HTTP server for the generation API.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if cfg.Pool == nil {
		return nil, errors.New("state pool is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("project registry is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ph := &projectHandler{registry: cfg.Registry, pool: cfg.Pool, logger: logger}
	gh := &generateHandler{orch: cfg.Orchestrator, registry: cfg.Registry, pool: cfg.Pool, logger: logger}
	sh := &stateHandler{registry: cfg.Registry, pool: cfg.Pool, logger: logger}

	mux := http.NewServeMux()

	// Project CRUD
	mux.HandleFunc("POST /v1/projects", ph.create)
	mux.HandleFunc("GET /v1/projects", ph.list)
	mux.HandleFunc("GET /v1/projects/{id}", ph.get)
	mux.HandleFunc("DELETE /v1/projects/{id}", ph.delete)

	// Generation
	mux.HandleFunc("POST /v1/projects/{id}/generate", gh.generate)
	mux.HandleFunc("POST /v1/projects/{id}/prompt", gh.preview)

	// State inspection
	mux.HandleFunc("GET /v1/projects/{id}/state", sh.list)

	// Knowledge base (optional — only registered if a store is provided)
	if cfg.Knowledge != nil {
		kh := &knowledgeHandler{store: cfg.Knowledge, logger: logger}
		mux.HandleFunc("POST /v1/knowledge", kh.add)
		mux.HandleFunc("GET /v1/knowledge", kh.search)
	}

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → Metrics → Routes
	// RequestID must be before Logging so request_id is available in log attributes.
	handler := chain(mux,
		recoveryMiddleware(logger),
		requestIDMiddleware(),
		loggingMiddleware(logger),
		metricsMiddleware(),
	)

	// Health and metrics bypass the middleware stack so probes stay
	// cheap and unlogged.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /healthz", healthz(cfg.Version))
	topMux.Handle("GET /metrics", observability.MetricsHandler())
	topMux.Handle("/", handler)

	return &Server{mux: topMux, logger: logger}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
