package summary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newsdesk/kiji/internal/models"
)

// DefaultProbeTTL is how long a liveness probe result is trusted before the
// provider is probed again.
const DefaultProbeTTL = 5 * time.Second

// Descriptor is one entry in the router's preference order.
type Descriptor struct {
	Name     string
	Provider Provider
	// Weight orders providers when the configured list order is not wanted;
	// higher wins. Equal weights keep list order.
	Weight float64
}

type probeState struct {
	available bool
	checkedAt time.Time
}

// Router selects among summarization providers using a declared preference
// order and cached liveness probes, falling back down the list when the
// selected provider fails mid-call.
type Router struct {
	descriptors []Descriptor
	probeTTL    time.Duration
	logger      *zap.Logger

	mu     sync.Mutex
	probes map[string]probeState
	// failed marks providers whose real call failed; it bypasses the probe
	// cache until Reprobe is called.
	failed map[string]bool
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithProbeTTL overrides the probe cache TTL.
func WithProbeTTL(ttl time.Duration) RouterOption {
	return func(r *Router) { r.probeTTL = ttl }
}

// WithLogger sets a logger for fallback events.
func WithLogger(l *zap.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// NewRouter creates a router over descriptors. Descriptors with higher Weight
// are preferred; equal weights preserve the given order.
func NewRouter(descriptors []Descriptor, opts ...RouterOption) *Router {
	ordered := make([]Descriptor, len(descriptors))
	copy(ordered, descriptors)
	// Stable insertion sort keeps list order for equal weights.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].Weight > ordered[j-1].Weight; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	r := &Router{
		descriptors: ordered,
		probeTTL:    DefaultProbeTTL,
		probes:      make(map[string]probeState),
		failed:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Providers returns the provider names in preference order.
func (r *Router) Providers() []string {
	names := make([]string, len(r.descriptors))
	for i, d := range r.descriptors {
		names[i] = d.Name
	}
	return names
}

// Reprobe clears the probe cache and hard-failure marks so that providers that
// failed earlier are considered again.
func (r *Router) Reprobe() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes = make(map[string]probeState)
	r.failed = make(map[string]bool)
}

// available reports whether d may be called, using the cached probe when fresh.
// A provider marked failed by a real call is unavailable regardless of probes.
func (r *Router) available(ctx context.Context, d Descriptor) bool {
	r.mu.Lock()
	if r.failed[d.Name] {
		r.mu.Unlock()
		return false
	}
	state, ok := r.probes[d.Name]
	r.mu.Unlock()
	if ok && time.Since(state.checkedAt) < r.probeTTL {
		return state.available
	}
	alive := d.Provider.Available(ctx)
	r.mu.Lock()
	r.probes[d.Name] = probeState{available: alive, checkedAt: time.Now()}
	r.mu.Unlock()
	return alive
}

// markFailed records a real-call failure, bypassing the probe cache.
func (r *Router) markFailed(name string) {
	r.mu.Lock()
	r.failed[name] = true
	r.mu.Unlock()
}

// Summarize routes a summarize request through the first available provider,
// falling back in preference order on provider failure.
func (r *Router) Summarize(ctx context.Context, text string, maxLen int) (*models.Summary, error) {
	return r.route(ctx, func(ctx context.Context, p Provider) (*models.Summary, error) {
		return p.Summarize(ctx, text, maxLen)
	})
}

// Answer routes an answer-with-context request the same way.
func (r *Router) Answer(ctx context.Context, question, contextText string) (*models.Summary, error) {
	return r.route(ctx, func(ctx context.Context, p Provider) (*models.Summary, error) {
		return p.Answer(ctx, question, contextText)
	})
}

func (r *Router) route(ctx context.Context, call func(context.Context, Provider) (*models.Summary, error)) (*models.Summary, error) {
	candidates := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		if r.available(ctx, d) {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %d configured, none passed the liveness probe", models.ErrNoProviderAvailable, len(r.descriptors))
	}

	var causes []error
	for _, d := range candidates {
		result, err := call(ctx, d.Provider)
		if err == nil {
			return result, nil
		}
		// Input-quality, timeout, and cancellation errors are caller-facing:
		// retrying the identical request against another provider cannot help.
		if errors.Is(err, models.ErrTextTooShort) || errors.Is(err, models.ErrTimeout) || errors.Is(err, models.ErrCancelled) {
			return nil, err
		}
		r.markFailed(d.Name)
		if r.logger != nil {
			r.logger.Warn("provider call failed, trying next", zap.String("provider", d.Name), zap.Error(err))
		}
		causes = append(causes, fmt.Errorf("%s: %w", d.Name, err))
	}
	return nil, fmt.Errorf("%w: %w", models.ErrAllProvidersFailed, errors.Join(causes...))
}
