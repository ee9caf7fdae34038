package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestLimiter(t *testing.T, r rate.Limit, b int, ttl time.Duration) *RateLimiter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRateLimiter(ctx, r, b, ttl)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewRateLimiter(t *testing.T) {
	rl := newTestLimiter(t, 100, 200, 3*time.Minute)

	assert.Equal(t, rate.Limit(100), rl.rate)
	assert.Equal(t, 200, rl.burst)
	assert.Equal(t, 3*time.Minute, rl.ttl)
	assert.NotNil(t, rl.visitors)
}

func TestGetVisitor(t *testing.T) {
	rl := newTestLimiter(t, 100, 200, 3*time.Minute)

	first := rl.getVisitor("192.168.1.1")
	require.NotNil(t, first)
	assert.Same(t, first, rl.getVisitor("192.168.1.1"))
	assert.NotSame(t, first, rl.getVisitor("192.168.1.2"))
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := newTestLimiter(t, 1, 1, time.Minute)
	handler := rl.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/code/send", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	other := httptest.NewRequest(http.MethodPost, "/api/code/send", nil)
	other.RemoteAddr = "192.168.1.2:12345"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, other)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiterMiddleware_BareAddress(t *testing.T) {
	rl := newTestLimiter(t, 1, 1, time.Minute)
	handler := rl.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiterMiddleware_EmptyAddress(t *testing.T) {
	rl := newTestLimiter(t, 1, 1, time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = ""

	w := httptest.NewRecorder()
	rl.Middleware(okHandler()).ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvict(t *testing.T) {
	rl := newTestLimiter(t, 1, 1, 200*time.Millisecond)
	rl.getVisitor("192.168.1.1")

	rl.evict(time.Now())
	assert.Len(t, rl.visitors, 1)

	rl.evict(time.Now().Add(time.Second))
	assert.Empty(t, rl.visitors)
}

func TestCleanupVisitors_StopsWithContext(t *testing.T) {
	rl := &RateLimiter{
		visitors: make(map[string]*clientLimiter),
		rate:     1,
		burst:    1,
		ttl:      10 * time.Millisecond,
	}
	rl.getVisitor("192.168.1.1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.cleanupVisitors(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		rl.mu.Lock()
		defer rl.mu.Unlock()
		return len(rl.visitors) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup goroutine did not stop")
	}
}
