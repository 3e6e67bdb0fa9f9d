package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PerDomain enforces a minimum spacing between requests to the same
// domain. Every outbound call (page, robots, sitemap, feed) must pass
// through Wait keyed by the target's domain.
type PerDomain struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	minDelay time.Duration
}

// New builds a per-domain limiter with the given minimum delay.
func New(minDelay time.Duration) *PerDomain {
	return &PerDomain{
		limiters: make(map[string]*rate.Limiter),
		minDelay: minDelay,
	}
}

// Wait blocks until the domain may be contacted again, then reserves the
// slot. An empty domain passes through untouched.
func (p *PerDomain) Wait(ctx context.Context, domain string) error {
	if domain == "" {
		return nil
	}
	p.mu.Lock()
	lim, ok := p.limiters[domain]
	if !ok {
		// Burst 1: the first request goes straight through, every
		// following one waits out minDelay.
		lim = rate.NewLimiter(rate.Every(p.minDelay), 1)
		p.limiters[domain] = lim
	}
	p.mu.Unlock()

	return lim.Wait(ctx)
}
