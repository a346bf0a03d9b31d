package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// RetryConfig configures the retry behavior for generation calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for LLM API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Retrier wraps a Generator with transient-failure retry.
//
// Transient failures (see Transient) are retried with exponential backoff
// up to the configured ceiling; permanent failures propagate immediately.
// Exhausting the budget surfaces a single terminal error naming the retry
// count. Each attempt is gated by the optional rate limiter, so retries
// never burst past provider quotas.
//
// Retrier itself implements Generator, so callers compose it transparently:
//
//	gen := llm.NewRetrier(provider, llm.DefaultRetryConfig(), limiter, logger)
type Retrier struct {
	gen     Generator
	cfg     RetryConfig
	limiter *rate.Limiter // nil = no proactive rate limiting
	logger  *slog.Logger
}

// NewRetrier creates a Retrier around gen. A zero-value cfg uses defaults;
// limiter may be nil; a nil logger falls back to slog.Default().
func NewRetrier(gen Generator, cfg RetryConfig, limiter *rate.Limiter, logger *slog.Logger) *Retrier {
	if cfg.MaxRetries == 0 && cfg.InitialInterval == 0 && cfg.MaxInterval == 0 {
		cfg = DefaultRetryConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{gen: gen, cfg: cfg, limiter: limiter, logger: logger}
}

// Generate executes the wrapped generator with exponential backoff retry.
func (r *Retrier) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	delay := r.cfg.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		// Rate limit each attempt, not just the first.
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limit wait: %w", err)
			}
		}

		out, err := r.gen.Generate(ctx, prompt)
		if err == nil {
			r.logger.Debug("generation succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return out, nil
		}

		lastErr = err

		if !Transient(err) {
			return "", fmt.Errorf("generate: %w", err)
		}

		// Last attempt, no point sleeping.
		if attempt == r.cfg.MaxRetries {
			break
		}

		r.logger.Debug("retrying after transient error",
			"attempt", attempt+1,
			"delay", delay,
			"elapsed", time.Since(start),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, r.cfg.MaxInterval)
		}
	}

	return "", fmt.Errorf("generate after %d retries (elapsed: %v): %w",
		r.cfg.MaxRetries, time.Since(start), lastErr)
}
