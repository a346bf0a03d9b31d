// Package llm provides the external text-generation boundary: a minimal
// Generator interface, provider implementations (Gemini via Genkit, OpenAI,
// and a deterministic offline mock), transient-failure retry with
// exponential backoff, and the parser that turns raw model output into
// proposed artifacts.
//
// The rest of the system treats generation as an opaque
// generate(prompt) -> text operation; everything provider-specific stays
// behind this package.
package llm

import "context"

// Generator produces text from a prompt. Implementations may fail with
// transient errors (classified by Transient) which callers retry via
// Retrier, or permanent errors which propagate immediately.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
