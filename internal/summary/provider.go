// Package summary provides LLM summarization backends (Ollama local inference,
// Claude remote API) and a preference-ordered router with automatic fallback.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/newsdesk/kiji/internal/models"
)

// MinTextLength is the default minimum input length worth summarizing.
// Shorter inputs fail with models.ErrTextTooShort instead of producing a
// low-quality summary.
const MinTextLength = 50

// Provider turns raw text into a short natural-language summary plus keywords.
type Provider interface {
	// Name identifies the provider in results and errors.
	Name() string

	// Summarize produces a summary of at most maxLen characters (a hint, not a
	// hard bound). Input below the minimum length fails with ErrTextTooShort;
	// input above the provider's maximum is truncated and noted in the result.
	Summarize(ctx context.Context, text string, maxLen int) (*models.Summary, error)

	// Answer generates an answer to question conditioned on contextText.
	Answer(ctx context.Context, question, contextText string) (*models.Summary, error)

	// Available is a cheap liveness probe. It never panics; internal errors are
	// swallowed and reported as unavailable.
	Available(ctx context.Context) bool
}

// prepareInput validates text against minLen and truncates it to maxChars.
// Both bounds count runes so multi-byte text is measured the same way the
// chunker windows it and truncation never splits a rune.
// Returns the usable text and whether truncation occurred.
func prepareInput(text string, minLen, maxChars int) (string, bool, error) {
	trimmed := strings.TrimSpace(text)
	if minLen <= 0 {
		minLen = MinTextLength
	}
	runes := []rune(trimmed)
	if len(runes) < minLen {
		return "", false, fmt.Errorf("%w: %d chars, need at least %d", models.ErrTextTooShort, len(runes), minLen)
	}
	if maxChars > 0 && len(runes) > maxChars {
		return string(runes[:maxChars]), true, nil
	}
	return trimmed, false, nil
}

// transportErr wraps a transport-level failure as provider-local and retryable,
// mapping context errors to the timeout/cancellation taxonomy first.
func transportErr(ctx context.Context, name string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return models.ContextErr(ctxErr)
	}
	return fmt.Errorf("%w: %s: %w", models.ErrProviderUnavailable, name, err)
}
