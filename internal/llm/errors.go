package llm

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors for generation and parsing.
var (
	// ErrMalformedOutput indicates the generator's response could not be
	// parsed into proposed artifacts. It is a request failure, not a
	// validation failure: malformed output never reaches the rule chain.
	ErrMalformedOutput = errors.New("malformed generator output")

	// ErrEmptyResponse indicates the provider returned no usable content.
	ErrEmptyResponse = errors.New("empty model response")
)

// transientPatterns groups error substrings by category.
// Matched case-insensitively against err.Error().
//
// NOTE: This uses string matching because the provider SDKs do not expose
// typed/sentinel errors for transient failures. Re-evaluate if they add
// structured error types in a future version.
var transientPatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},                     // rate limiting
	{"500", "502", "503", "504", "unavailable", "overloaded"},   // transient server errors
	{"connection reset", "connection refused", "timeout", "temporary"}, // network errors
}

// Transient reports whether err is a transient failure worth retrying.
// Deadline expiry counts as a timeout; explicit cancellation never retries.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, group := range transientPatterns {
		for _, sub := range group {
			if strings.Contains(errStr, sub) {
				return true
			}
		}
	}
	return false
}
