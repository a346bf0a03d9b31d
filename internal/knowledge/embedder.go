package knowledge

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/firebase/genkit/go/ai"
	chromem "github.com/philippgille/chromem-go"
)

// NewEmbeddingFunc creates a chromem-go EmbeddingFunc from a Genkit
// ai.Embedder. The same bridge serves both the knowledge base and the
// per-project artifact indexes.
//
// Note: chromem-go normalizes vectors itself, so the embedder's output is
// passed through untouched.
func NewEmbeddingFunc(embedder ai.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := embedder.Embed(ctx, &ai.EmbedRequest{
			Input: []*ai.Document{
				ai.DocumentFromText(text, nil),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("embed failed: %w", err)
		}

		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
			return nil, fmt.Errorf("embedder returned no vector")
		}

		return resp.Embeddings[0].Embedding, nil
	}
}

// LocalDim is the vector size LocalEmbeddingFunc produces.
const LocalDim = 256

// LocalEmbeddingFunc returns an embedding function that needs no network
// or API key: tokens are feature-hashed onto a fixed number of axes and
// the vector is the normalized token-frequency count, so texts sharing
// vocabulary come out similar. It backs the mock provider; ranking
// quality is far below a real embedding model.
func LocalEmbeddingFunc(dim int) chromem.EmbeddingFunc {
	if dim <= 0 {
		dim = LocalDim
	}
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dim)
		for _, tok := range tokenize(text) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(tok))
			vec[h.Sum32()%uint32(dim)]++ //nolint:gosec // dim is bounded above zero
		}

		var norm float32
		for _, v := range vec {
			norm += v * v
		}
		if norm == 0 {
			// Keep empty or all-symbol texts off the zero vector so cosine
			// similarity stays defined.
			vec[0] = 1
			return vec, nil
		}
		norm = float32(math.Sqrt(float64(norm)))
		for i := range vec {
			vec[i] /= norm
		}
		return vec, nil
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
