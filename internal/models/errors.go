package models

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the RAG core. Callers match with errors.Is; implementations
// wrap them with %w to attach context.
//
// Configuration and input-quality errors are never retried. Unavailability errors
// are transient: the provider router retries across providers, and the caller may
// retry the whole operation later. Timeout and cancellation are caller-controlled.
var (
	// ErrInvalidChunkConfig indicates a bad chunk size/overlap combination.
	ErrInvalidChunkConfig = errors.New("invalid chunk config")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// index's established dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidQuery indicates a malformed search request (e.g. top_k <= 0).
	ErrInvalidQuery = errors.New("invalid query")

	// ErrModelUnavailable indicates the embedding model could not be loaded.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrProviderUnavailable indicates a summarization backend failed at the
	// transport level (timeout, connection refused, non-2xx status).
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNoProviderAvailable indicates every configured provider failed its
	// liveness probe before any call was attempted.
	ErrNoProviderAvailable = errors.New("no provider available")

	// ErrAllProvidersFailed indicates every available provider's call failed.
	// The wrapped error carries the per-provider causes.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrTimeout indicates an operation exceeded its caller-supplied deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrCancelled indicates an operation was cancelled by the caller.
	ErrCancelled = errors.New("operation cancelled")

	// ErrTextTooShort indicates input text below the minimum summarizable length.
	ErrTextTooShort = errors.New("text too short to summarize")

	// ErrNotFound indicates a requested article does not exist.
	ErrNotFound = errors.New("not found")
)

// ContextErr maps a context error to the core taxonomy, preserving the original
// as the wrapped cause. Returns err unchanged when it is neither a deadline nor
// a cancellation error.
func ContextErr(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	default:
		return err
	}
}
