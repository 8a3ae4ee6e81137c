package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, rps float64, burst int) *Limiter {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerSecond: rps, Burst: burst, IdleTimeout: time.Minute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	return rl
}

func TestAllowBurstThenRefill(t *testing.T) {
	rl := newTestLimiter(t, 1, 3)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("a"), "request %d within burst", i)
	}
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "clients are limited independently")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"))
	assert.Equal(t, int64(1), rl.GetMetrics().TotalHits)
	assert.Equal(t, int64(2), rl.GetMetrics().ClientCount)
}

func TestCleanupStaleEntries(t *testing.T) {
	rl := newTestLimiter(t, 1, 1)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(30 * time.Second)
	rl.Allow("b")
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, rl.cleanupStaleEntries())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestMiddlewareOnlyLimitsMutations(t *testing.T) {
	rl := newTestLimiter(t, 1, 1)
	h := rl.Middleware(func(*http.Request) string { return "ip" }, Mutating, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	serve := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/expenses", nil))
		return rr
	}

	assert.Equal(t, http.StatusNoContent, serve(http.MethodPost).Code)
	rr := serve(http.MethodPost)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNoContent, serve(http.MethodGet).Code)
	assert.Equal(t, http.StatusNoContent, serve(http.MethodGet).Code)
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}
