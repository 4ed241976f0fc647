package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter provides client-side rate limiting for API requests.
type Limiter struct {
	limiter *rate.Limiter
	enabled bool
	mu      sync.RWMutex

	// Statistics
	totalRequests   int64
	blockedRequests int64
	totalWait       time.Duration
}

// Config holds rate limiter configuration.
type Config struct {
	Enabled           bool
	RequestsPerMinute int
	BurstSize         int
}

// DefaultConfig returns the default rate limiter configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		RequestsPerMinute: 60,
		BurstSize:         5,
	}
}

// NewLimiter creates a new rate limiter with the given configuration.
func NewLimiter(cfg Config) *Limiter {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = DefaultConfig().RequestsPerMinute
	}
	burst := cfg.BurstSize
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
		enabled: cfg.Enabled,
	}
}

// Acquire blocks until a request slot is available or ctx ends. A request
// that cannot go at once counts as blocked, whether or not the wait succeeds.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.TryAcquire() {
		return nil
	}

	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	l.mu.Lock()
	l.totalWait += time.Since(start)
	l.mu.Unlock()
	return nil
}

// TryAcquire attempts to take a request slot without blocking.
func (l *Limiter) TryAcquire() bool {
	if l == nil || !l.isEnabled() {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.totalRequests++
	if !l.limiter.Allow() {
		l.blockedRequests++
		return false
	}
	return true
}

// Stats returns rate limiter statistics. A nil limiter reports zero values.
func (l *Limiter) Stats() Stats {
	if l == nil {
		return Stats{}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Stats{
		Enabled:           l.enabled,
		TotalRequests:     l.totalRequests,
		BlockedRequests:   l.blockedRequests,
		TotalWait:         l.totalWait,
		AvailableRequests: l.limiter.Tokens(),
	}
}

// Stats holds rate limiter statistics.
type Stats struct {
	Enabled           bool
	TotalRequests     int64
	BlockedRequests   int64
	TotalWait         time.Duration
	AvailableRequests float64
}

// SetEnabled enables or disables the rate limiter.
func (l *Limiter) SetEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// isEnabled checks if the limiter is enabled (thread-safe).
func (l *Limiter) isEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled
}
