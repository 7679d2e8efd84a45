//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"fmt"

	"github.com/newsdesk/kiji/internal/models"
)

// ONNXEmbedder stub when built without CGO (see onnx.go for the real implementation).
type ONNXEmbedder struct {
	dimensions int
}

// NewONNXEmbedder returns a stub that reports unavailable; build with
// CGO_ENABLED=1 and the onnxruntime library for local inference.
func NewONNXEmbedder(_ string, dimensions, _, _, _ int) *ONNXEmbedder {
	return &ONNXEmbedder{dimensions: dimensions}
}

// Embed always fails without CGO.
func (e *ONNXEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("%w: ONNX embedder requires CGO and onnxruntime", models.ErrModelUnavailable)
}

// Dimensions returns the configured embedding dimension.
func (e *ONNXEmbedder) Dimensions() int { return e.dimensions }

// Available always reports false without CGO.
func (e *ONNXEmbedder) Available() bool { return false }

// Close is a no-op.
func (e *ONNXEmbedder) Close() error { return nil }
