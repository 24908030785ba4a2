// Package ratelimit provides the shared in-process token-bucket limiters used
// by rate-limited tools (spec §5 Global rate limits: "web crawler, search ...
// carry their own token-bucket limiters (≈5 requests/minute each); the
// limiter is a shared in-process object").
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// DefaultPerMinute is the default budget for rate-limited tools absent an
// explicit override.
const DefaultPerMinute = 5

// Registry hands out one limiter per tool name, creating it lazily on first
// use and reusing it thereafter so concurrent calls to the same tool share
// one bucket.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   float64
}

// NewRegistry builds a Registry whose limiters allow perMinute requests per
// minute with a burst of 1. perMinute is optional and defaults to
// DefaultPerMinute when omitted or <= 0; callers that need a non-default
// shared budget pass exactly one value.
func NewRegistry(perMinute ...float64) *Registry {
	p := float64(DefaultPerMinute)
	if len(perMinute) > 0 && perMinute[0] > 0 {
		p = perMinute[0]
	}
	return &Registry{
		limiters: make(map[string]*rate.Limiter),
		perMin:   p,
	}
}

// Wait blocks until the named tool's limiter admits one request or ctx is
// canceled.
func (r *Registry) Wait(ctx context.Context, tool string) error {
	return r.limiterFor(tool).Wait(ctx)
}

func (r *Registry) limiterFor(tool string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[tool]
	if !ok {
		l = rate.NewLimiter(rate.Limit(r.perMin/60.0), 1)
		r.limiters[tool] = l
	}
	return l
}
