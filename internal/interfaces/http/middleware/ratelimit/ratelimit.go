package ratelimit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/playtype/account-recovery-service/internal/domain/errors"
	httperrors "github.com/playtype/account-recovery-service/internal/interfaces/http/errors"
	"golang.org/x/time/rate"
)

const cleanupInterval = time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP with a token bucket. It guards
// the whole API; per-phone SMS quotas are enforced separately in Redis.
type RateLimiter struct {
	visitors map[string]*clientLimiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	ttl      time.Duration
}

// NewRateLimiter creates a limiter and starts evicting idle visitors until ctx is done
func NewRateLimiter(ctx context.Context, r rate.Limit, b int, ttl time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*clientLimiter),
		rate:     r,
		burst:    b,
		ttl:      ttl,
	}
	go rl.cleanupVisitors(ctx, cleanupInterval)
	return rl
}

func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, exists := rl.visitors[ip]; exists {
		v.lastSeen = time.Now()
		return v.limiter
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.visitors[ip] = &clientLimiter{limiter, time.Now()}
	return limiter
}

func (rl *RateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.ttl {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *RateLimiter) cleanupVisitors(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.evict(now)
		}
	}
}

// retryAfter is the wait until the bucket holds one token again
func (rl *RateLimiter) retryAfter() time.Duration {
	if rl.rate <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / float64(rl.rate))
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// chi's RealIP middleware stores a bare address
		return r.RemoteAddr
	}
	return ip
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ip == "" {
			httperrors.RespondWithError(w, httperrors.ErrCodeInvalidRequest, "Unable to parse IP", nil, http.StatusBadRequest)
			return
		}
		if !rl.getVisitor(ip).Allow() {
			httperrors.RespondWithAppError(w, apperrors.NewRateLimited(rl.retryAfter()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
