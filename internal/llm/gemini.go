package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// GeminiGenerator produces text through a Genkit-registered Google AI model.
type GeminiGenerator struct {
	g     *genkit.Genkit
	model string
}

// NewGeminiGenerator creates a generator backed by the given Genkit
// instance. model is the fully qualified Genkit model name, for example
// "googleai/gemini-3-flash-preview".
func NewGeminiGenerator(g *genkit.Genkit, model string) (*GeminiGenerator, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &GeminiGenerator{g: g, model: model}, nil
}

// Generate implements Generator.
func (gg *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := genkit.Generate(ctx, gg.g,
		ai.WithModelName(gg.model),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	text := response.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
