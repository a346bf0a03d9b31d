package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

// KeywordEmbeddingFunc returns a chromem-go embedding function with one
// vector axis per keyword. Texts sharing a keyword get overlapping axes
// and therefore high cosine similarity; texts sharing none are orthogonal.
//
// This gives tests precise control over which documents clear a similarity
// threshold without any model calls:
//
//	embed := testutil.KeywordEmbeddingFunc("button", "navbar", "pricing")
//
// A text matching no keyword lands on a dedicated off-axis dimension, so
// the vector is never zero. That also means two keyword-less texts are
// mutually similar: to test a miss, query with a registered keyword that
// no document contains.
func KeywordEmbeddingFunc(keywords ...string) chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, len(keywords)+1)
		lower := strings.ToLower(text)

		matched := false
		for i, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				vec[i] = 1
				matched = true
			}
		}
		if !matched {
			vec[len(keywords)] = 1
		}
		return vec, nil
	}
}

// HashEmbeddingFunc returns a deterministic chromem-go embedding function:
// the same text always produces the same normalized vector. Use it where a
// test needs embeddings but asserts nothing about ranking.
func HashEmbeddingFunc(dim int) chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		return deterministicVector(text, dim), nil
	}
}

// deterministicVector generates a normalized vector from content using
// SHA-256. The same content always produces the same vector.
func deterministicVector(content string, dim int) []float32 {
	hash := sha256.Sum256([]byte(content))
	vec := make([]float32, dim)

	for i := range vec {
		idx := (i * 4) % len(hash)
		bits := binary.LittleEndian.Uint32([]byte{
			hash[idx%32],
			hash[(idx+1)%32],
			hash[(idx+2)%32],
			hash[(idx+3)%32],
		})
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}

	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
