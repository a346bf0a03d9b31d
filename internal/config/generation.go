package config

import "time"

const (
	// DefaultMaxRetries caps transient-failure retries per generation call.
	DefaultMaxRetries = 3

	// MaxAllowedRetries is the absolute ceiling for retry.max_retries.
	MaxAllowedRetries = 10

	// DefaultInitialIntervalMS is the first backoff delay.
	DefaultInitialIntervalMS = 500

	// DefaultMaxIntervalMS caps the exponential backoff delay.
	DefaultMaxIntervalMS = 10_000
)

// RetryConfig tunes transient-failure handling around the generation
// provider. Intervals are configured in milliseconds to keep the YAML
// free of duration strings.
type RetryConfig struct {
	MaxRetries        int `mapstructure:"max_retries" json:"max_retries"`
	InitialIntervalMS int `mapstructure:"initial_interval_ms" json:"initial_interval_ms"`
	MaxIntervalMS     int `mapstructure:"max_interval_ms" json:"max_interval_ms"`

	// RatePerMinute proactively limits generation calls, retries included.
	// Zero disables the limiter.
	RatePerMinute int `mapstructure:"rate_per_minute" json:"rate_per_minute"`
}

// InitialInterval returns the first backoff delay as a duration.
func (r RetryConfig) InitialInterval() time.Duration {
	return time.Duration(r.InitialIntervalMS) * time.Millisecond
}

// MaxInterval returns the backoff ceiling as a duration.
func (r RetryConfig) MaxInterval() time.Duration {
	return time.Duration(r.MaxIntervalMS) * time.Millisecond
}
