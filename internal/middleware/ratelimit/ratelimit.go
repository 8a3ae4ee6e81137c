// Package ratelimit throttles mutating requests per client with token buckets.
package ratelimit

import (
	"fmt"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per client key.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client

	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	hits         int64
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Config holds rate limiter configuration.
type Config struct {
	RequestsPerSecond float64
	Burst             int
	// Clients idle for longer than IdleTimeout are forgotten.
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 1,
		Burst:             20,
		IdleTimeout:       10 * time.Minute,
		CleanupInterval:   5 * time.Minute,
	}
}

// NewLimiter creates a limiter and starts its cleanup goroutine; call Stop
// to end it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = def.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = def.IdleTimeout
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		clients:     make(map[string]*client),
		limit:       rate.Limit(config.RequestsPerSecond),
		burst:       config.Burst,
		idle:        config.IdleTimeout,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup(config.CleanupInterval)
	return rl
}

// Allow reports whether key may make a request now.
func (rl *Limiter) Allow(key string) bool {
	rl.mu.Lock()
	now := rl.now()
	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	allowed := c.limiter.AllowN(now, 1)
	rl.mu.Unlock()

	if !allowed {
		atomic.AddInt64(&rl.hits, 1)
	}
	return allowed
}

// RetryAfter is the whole number of seconds until one token is available.
func (rl *Limiter) RetryAfter() int {
	return int(math.Ceil(1 / float64(rl.limit)))
}

func (rl *Limiter) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *Limiter) cleanupStaleEntries() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idle)
	removed := 0
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() { close(rl.stopCleanup) })
}

// Metrics for monitoring rate limit performance.
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   atomic.LoadInt64(&rl.hits),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Mutating reports whether the method changes state on the server.
func Mutating(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// Middleware limits requests selected by applies, keyed by extractIP. A nil
// applies limits every request; a nil onLimit answers 429 in plain text.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, applies func(*http.Request) bool, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if applies != nil && !applies(r) {
				next.ServeHTTP(w, r)
				return
			}
			if !rl.Allow(extractIP(r)) {
				w.Header().Set("Retry-After", fmt.Sprint(rl.RetryAfter()))
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
