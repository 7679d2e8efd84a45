package embedding

import (
	"context"
	"math"

	"github.com/newsdesk/kiji/internal/models"
	"github.com/newsdesk/kiji/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and for running without a
// model: the same text always maps to the same unit-length vector.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a deterministic embedder of the given dimensionality.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns hash-derived embeddings, one per text, order-preserving.
func (e *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.ContextErr(err)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embedOne(text)
	}
	return out, nil
}

func (e *MockEmbedder) embedOne(text string) []float32 {
	h := hashToken(text)
	vec := make([]float32, e.dimensions)
	for i := range vec {
		vec[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(vec)
	return vec
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int { return e.dimensions }

// Available always reports true.
func (e *MockEmbedder) Available() bool { return true }

// Close is a no-op.
func (e *MockEmbedder) Close() error { return nil }
