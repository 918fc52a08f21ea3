package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/monitoring"
)

// Config holds rate limiter configuration
type Config struct {
	PerMinute int           // sustained requests per minute per client
	Burst     int           // bucket size; 0 means half of PerMinute, at least 5
	IdleTTL   time.Duration // limiters unused this long are dropped
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		PerMinute: 60,
		IdleTTL:   time.Hour,
	}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type entry struct {
	limiter  *rate.Limiter
	limit    int
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key in memory.
type RateLimiter struct {
	config  Config
	metrics *monitoring.Metrics

	mu       sync.Mutex
	limiters map[string]*entry
	now      func() time.Time
}

// NewRateLimiter creates a rate limiter. metrics may be nil.
func NewRateLimiter(config Config, metrics *monitoring.Metrics) *RateLimiter {
	if config.PerMinute <= 0 {
		config.PerMinute = DefaultConfig().PerMinute
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultConfig().IdleTTL
	}
	return &RateLimiter{
		config:   config,
		metrics:  metrics,
		limiters: make(map[string]*entry),
		now:      time.Now,
	}
}

// AllowIP checks the per-client limit.
func (rl *RateLimiter) AllowIP(ip string) Result {
	return rl.allow("ip:"+ip, rl.config.PerMinute)
}

// AllowEndpoint checks a separate, usually tighter, per-client limit for
// one endpoint.
func (rl *RateLimiter) AllowEndpoint(endpoint, ip string, perMinute int) Result {
	return rl.allow(fmt.Sprintf("endpoint:%s:%s", endpoint, ip), perMinute)
}

func (rl *RateLimiter) allow(key string, perMinute int) Result {
	now := rl.now()

	rl.mu.Lock()
	e, exists := rl.limiters[key]
	if !exists {
		e = &entry{
			limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), rl.burst(perMinute)),
			limit:   perMinute,
		}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	rl.mu.Unlock()

	res := Result{Limit: e.limit}

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		res.RetryAfter = time.Minute
		return res
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		res.RetryAfter = delay
		return res
	}

	res.Allowed = true
	if remaining := int(e.limiter.TokensAt(now)); remaining > 0 {
		res.Remaining = remaining
	}
	return res
}

func (rl *RateLimiter) burst(perMinute int) int {
	if rl.config.Burst > 0 {
		return rl.config.Burst
	}
	burst := perMinute / 2
	if burst < 5 {
		burst = 5
	}
	return burst
}

// Cleanup drops limiters idle for longer than IdleTTL and returns how many
// went.
func (rl *RateLimiter) Cleanup() int {
	cutoff := rl.now().Add(-rl.config.IdleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, e := range rl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// Run sweeps idle limiters until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.config.IdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	count := len(rl.limiters)
	rl.mu.Unlock()

	return map[string]interface{}{
		"limiters":   count,
		"per_minute": rl.config.PerMinute,
		"burst":      rl.burst(rl.config.PerMinute),
	}
}
