// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.loom/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Provider: generation backend selection and model names
//   - Storage: data directory for project state and the registry
//   - Retrieval: context selection limits and the similarity floor
//   - Retention: superseded-version cleanup policy
//   - Retry: generation backoff and rate limiting
//   - Knowledge: advisory knowledge base seeding and limits
//   - Telemetry: OTLP trace export (see telemetry.go)
//
// API keys are never stored in the config file: GEMINI_API_KEY and
// OPENAI_API_KEY are read from the environment at wiring time, and
// Validate only checks their presence for the selected provider.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the generation provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidAddr indicates the listen address is invalid.
	ErrInvalidAddr = errors.New("invalid listen address")

	// ErrInvalidDataDir indicates the data directory is invalid.
	ErrInvalidDataDir = errors.New("invalid data directory")

	// ErrInvalidRetrieval indicates a retrieval setting is out of range.
	ErrInvalidRetrieval = errors.New("invalid retrieval setting")

	// ErrInvalidRetention indicates a retention setting is out of range.
	ErrInvalidRetention = errors.New("invalid retention setting")

	// ErrInvalidRetry indicates a retry setting is out of range.
	ErrInvalidRetry = errors.New("invalid retry setting")

	// ErrInvalidKnowledge indicates a knowledge base setting is out of range.
	ErrInvalidKnowledge = errors.New("invalid knowledge setting")
)

// Generation provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"

	// ProviderAuto selects gemini or openai from whichever API key is
	// present in the environment, falling back to mock.
	ProviderAuto = "auto"
)

const (
	// DefaultModelName is the generation model used when none is configured.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultOpenAIModelName is the generation model for the openai provider.
	DefaultOpenAIModelName = "gpt-4o-mini"

	// DefaultEmbedderModel is the Gemini embedder backing both semantic
	// indexes. Embeddings stay process-local, so the vector dimension is
	// whatever the model emits.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultAddr is the default HTTP listen address. Loopback only: the
	// server has no authentication layer.
	DefaultAddr = "127.0.0.1:3400"
)

// Config stores application configuration. Secrets never live here; see
// the package comment.
type Config struct {
	// Generation provider and model configuration
	Provider      string `mapstructure:"provider" json:"provider"`           // "auto" (default), "gemini", "openai", "mock"
	ModelName     string `mapstructure:"model_name" json:"model_name"`       // e.g. "gemini-2.5-flash", "gpt-4o-mini"
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Storage and serving
	DataDir string `mapstructure:"data_dir" json:"data_dir"` // project state, registry, knowledge base
	Addr    string `mapstructure:"addr" json:"addr"`         // HTTP listen address

	// Pipeline behavior
	RuntimeCheck bool `mapstructure:"runtime_check" json:"runtime_check"` // gate commits behind the runtime sanity check
	Watch        bool `mapstructure:"watch" json:"watch"`                 // watch state files for external edits

	// Nested sections (see their files for documentation)
	Retrieval RetrievalConfig `mapstructure:"retrieval" json:"retrieval"`
	Retention RetentionConfig `mapstructure:"retention" json:"retention"`
	Retry     RetryConfig     `mapstructure:"retry" json:"retry"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge" json:"knowledge"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Configuration directory: ~/.loom/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".loom")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults(configDir)
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	cfg.resolveProvider()

	// CRITICAL: Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	// Provider defaults
	viper.SetDefault("provider", ProviderAuto)
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)

	// Storage and serving defaults
	viper.SetDefault("data_dir", filepath.Join(configDir, "data"))
	viper.SetDefault("addr", DefaultAddr)

	// Pipeline defaults
	viper.SetDefault("runtime_check", true)
	viper.SetDefault("watch", true)

	// Retrieval defaults
	viper.SetDefault("retrieval.limit", DefaultRetrievalLimit)
	viper.SetDefault("retrieval.min_similarity", DefaultMinSimilarity)

	// Retention defaults
	viper.SetDefault("retention.keep_inactive", DefaultKeepInactive)
	viper.SetDefault("retention.cleanup_every", DefaultCleanupEvery)

	// Retry defaults
	viper.SetDefault("retry.max_retries", DefaultMaxRetries)
	viper.SetDefault("retry.initial_interval_ms", DefaultInitialIntervalMS)
	viper.SetDefault("retry.max_interval_ms", DefaultMaxIntervalMS)
	viper.SetDefault("retry.rate_per_minute", 0)

	// Knowledge defaults
	viper.SetDefault("knowledge.limit", DefaultKnowledgeLimit)
	viper.SetDefault("knowledge.seed_file", "")

	// Telemetry defaults (endpoint empty = tracing disabled)
	viper.SetDefault("telemetry.endpoint", "")
	viper.SetDefault("telemetry.service_name", "loom")
	viper.SetDefault("telemetry.environment", "dev")
	viper.SetDefault("telemetry.insecure", true)
}

// bindEnvVariables binds environment overrides explicitly.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "LOOM_PROVIDER")
	mustBind("model_name", "LOOM_MODEL_NAME")
	mustBind("embedder_model", "LOOM_EMBEDDER_MODEL")
	mustBind("data_dir", "LOOM_DATA_DIR")
	mustBind("addr", "LOOM_ADDR")
	mustBind("telemetry.endpoint", "LOOM_OTLP_ENDPOINT")

	// NOTE: GEMINI_API_KEY is read directly by Genkit, not via Viper
	// NOTE: OPENAI_API_KEY is read directly by the OpenAI client, not via Viper
	// Validation checks their presence based on the selected provider in cfg.Validate()
}

// resolveProvider replaces the "auto" provider with a concrete one based
// on which API keys the environment carries. No key at all means mock, so
// a fresh checkout runs end to end without network access.
func (c *Config) resolveProvider() {
	if c.Provider != ProviderAuto && c.Provider != "" {
		return
	}
	switch {
	case os.Getenv("GEMINI_API_KEY") != "":
		c.Provider = ProviderGemini
	case os.Getenv("OPENAI_API_KEY") != "":
		c.Provider = ProviderOpenAI
		if c.ModelName == DefaultModelName {
			c.ModelName = DefaultOpenAIModelName
		}
	default:
		c.Provider = ProviderMock
	}
}

// FullModelName returns the provider-qualified model name for Genkit.
// Example: "googleai/gemini-2.5-flash". If ModelName already contains a
// "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return "googleai/" + c.ModelName
}
