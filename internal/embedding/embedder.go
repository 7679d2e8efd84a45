// Package embedding provides text embedding backends (ONNX local inference,
// Ollama HTTP, deterministic mock) behind a common interface.
package embedding

import (
	"context"

	"github.com/newsdesk/kiji/internal/models"
)

// Embedder produces vector embeddings for text. Implementations load their
// model lazily and idempotently; once loaded, the model is read-only and safe
// for concurrent Embed calls.
type Embedder interface {
	// Embed returns one vector per input text, order-preserving. An empty input
	// returns an empty slice. Honors ctx cancellation and deadline.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed embedding dimensionality.
	Dimensions() int

	// Available reports whether the backend can serve embeddings. It never
	// panics; probe errors are swallowed and reported as unavailable.
	Available() bool

	// Close releases model resources.
	Close() error
}

// inBatches runs embed over texts in sub-batches of at most batchSize to bound
// peak memory, preserving order. Cancellation between batches discards all
// partial work and surfaces as models.ErrCancelled / models.ErrTimeout.
func inBatches(ctx context.Context, texts []string, batchSize int, embed func(context.Context, []string) ([][]float32, error)) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, models.ContextErr(err)
		}
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}
