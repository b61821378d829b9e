package fetcher

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter is a rate.Limiter that speeds up by 20% after each success
// (capped at twice the starting rate) and halves after a 429 (floored at a
// quarter of it).
type AdaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	current rate.Limit
	floor   rate.Limit
	ceiling rate.Limit
}

// NewAdaptiveLimiter creates a limiter starting at r events per second.
func NewAdaptiveLimiter(r rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter: rate.NewLimiter(r, burst),
		current: r,
		floor:   r / 4,
		ceiling: r * 2,
	}
}

// Wait blocks until the limiter allows a request.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess nudges the rate up.
func (a *AdaptiveLimiter) OnSuccess() {
	a.set(min(a.Limit()*1.2, a.ceiling))
}

// OnRateLimit halves the rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	next := max(a.Limit()*0.5, a.floor)
	a.set(next)
	zap.L().Warn("fetcher: rate limited, slowing down", zap.Float64("new_rate", float64(next)))
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *AdaptiveLimiter) set(r rate.Limit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = r
	a.limiter.SetLimit(r)
}

// hostLimiters hands out one AdaptiveLimiter per host.
type hostLimiters struct {
	mu       sync.Mutex
	byHost   map[string]*AdaptiveLimiter
	rate     rate.Limit
	burst    int
	override map[string]float64
}

func (h *hostLimiters) get(host string) *AdaptiveLimiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.byHost[host]; ok {
		return l
	}
	r := h.rate
	if o, ok := h.override[host]; ok && o > 0 {
		r = rate.Limit(o)
	}
	l := NewAdaptiveLimiter(r, h.burst)
	h.byHost[host] = l
	return l
}
