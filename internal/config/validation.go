package config

import (
	"fmt"
	"net"
	"os"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider validation. The mock provider needs no key, so a fresh
	// checkout always passes.
	validProviders := []string{ProviderGemini, ProviderOpenAI, ProviderMock}
	if !slices.Contains(validProviders, c.Provider) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidProvider, c.Provider, validProviders)
	}

	// 2. API key presence for the selected provider
	switch c.Provider {
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required for the gemini provider\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required for the openai provider",
				ErrMissingAPIKey)
		}
	}

	// 3. Model configuration validation
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// 4. Storage and serving validation
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir cannot be empty", ErrInvalidDataDir)
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("%w: %q must be host:port: %v", ErrInvalidAddr, c.Addr, err)
	}

	// 5. Retrieval validation
	if c.Retrieval.Limit < 1 || c.Retrieval.Limit > MaxRetrievalLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d, got %d",
			ErrInvalidRetrieval, MaxRetrievalLimit, c.Retrieval.Limit)
	}
	if c.Retrieval.MinSimilarity < 0 || c.Retrieval.MinSimilarity >= 1 {
		return fmt.Errorf("%w: min_similarity must be in [0, 1), got %.2f",
			ErrInvalidRetrieval, c.Retrieval.MinSimilarity)
	}

	// 6. Retention validation
	if c.Retention.KeepInactive < 1 {
		return fmt.Errorf("%w: keep_inactive must be at least 1, got %d",
			ErrInvalidRetention, c.Retention.KeepInactive)
	}
	if c.Retention.CleanupEvery < 1 {
		return fmt.Errorf("%w: cleanup_every must be at least 1, got %d",
			ErrInvalidRetention, c.Retention.CleanupEvery)
	}

	// 7. Retry validation
	if c.Retry.MaxRetries < 0 || c.Retry.MaxRetries > MaxAllowedRetries {
		return fmt.Errorf("%w: max_retries must be between 0 and %d, got %d",
			ErrInvalidRetry, MaxAllowedRetries, c.Retry.MaxRetries)
	}
	if c.Retry.InitialIntervalMS < 1 || c.Retry.MaxIntervalMS < c.Retry.InitialIntervalMS {
		return fmt.Errorf("%w: intervals must satisfy 1 <= initial_interval_ms <= max_interval_ms, got %d..%d",
			ErrInvalidRetry, c.Retry.InitialIntervalMS, c.Retry.MaxIntervalMS)
	}
	if c.Retry.RatePerMinute < 0 {
		return fmt.Errorf("%w: rate_per_minute cannot be negative, got %d",
			ErrInvalidRetry, c.Retry.RatePerMinute)
	}

	// 8. Knowledge validation
	if c.Knowledge.Limit < 1 || c.Knowledge.Limit > MaxKnowledgeLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d, got %d",
			ErrInvalidKnowledge, MaxKnowledgeLimit, c.Knowledge.Limit)
	}

	return nil
}
