// Package middleware provides the HTTP middleware of the FitForge API.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fitforge/fitforge/pkg/logger"
	"github.com/fitforge/fitforge/pkg/response"
)

// Limiter decides whether key may make another request inside window.
// cache.RateLimiter implements it on Redis so limits hold across instances.
type Limiter interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error)
}

// bucket tracks a fixed-window request count for one client.
type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a per-process Limiter. Counts are lost on restart and
// are not shared between replicas.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: map[string]*bucket{}, now: time.Now}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, max int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(window)}
		l.buckets[key] = b
	}
	b.count++
	return b.count <= max, nil
}

// Sweep evicts expired buckets every interval until ctx is done.
func (l *MemoryLimiter) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := l.now()
			l.mu.Lock()
			for key, b := range l.buckets {
				if now.After(b.resetAt) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// FallbackLimiter tries primary and falls back to secondary when primary
// errors, so a Redis outage degrades to per-process limits instead of
// rejecting or admitting everything.
type FallbackLimiter struct {
	Primary   Limiter
	Secondary Limiter
}

func (f FallbackLimiter) Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error) {
	ok, err := f.Primary.Allow(ctx, key, max, window)
	if err == nil {
		return ok, nil
	}
	logger.WithCtx(ctx).Warn("rate limit: primary limiter failed", "error", err)
	return f.Secondary.Allow(ctx, key, max, window)
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// RateLimit limits each client IP to max requests per window.
//
//	r.Use(middleware.RateLimit(limiter, 200, time.Minute))
func RateLimit(l Limiter, max int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := l.Allow(r.Context(), "ratelimit:"+clientKey(r), max, window)
			if err != nil {
				logger.WithCtx(r.Context()).Warn("rate limit check failed", "error", err)
				ok = true
			}
			if !ok {
				w.Header().Set("Retry-After", window.String())
				response.Error(w, http.StatusTooManyRequests, "Too Many Requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
