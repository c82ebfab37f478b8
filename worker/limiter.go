// ABOUTME: Per-host rate limiting for outbound peer requests
// ABOUTME: Each peer host gets its own token bucket created on first use
package worker

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter hands out per-host token buckets.
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewLimiter creates a limiter allowing requestsPerSecond per host.
// A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     limit,
		burst:    burst,
	}
}

// Wait blocks until the host of rawURL may send another request.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid peer url %q: %w", rawURL, err)
	}

	return l.forHost(parsed.Host).Wait(ctx)
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[host]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters[host]; ok {
		return limiter
	}

	limiter = rate.NewLimiter(l.rate, l.burst)
	l.limiters[host] = limiter
	return limiter
}
