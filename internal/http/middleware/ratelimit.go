package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per key and forgets idle keys.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	maxAge time.Duration

	mu    sync.Mutex
	store map[string]*limiterEntry
}

type limiterEntry struct {
	limiter *rate.Limiter
	updated time.Time
}

func NewRateLimiter(reqPerSec float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:  rate.Limit(reqPerSec),
		burst:  burst,
		maxAge: 10 * time.Minute,
		store:  make(map[string]*limiterEntry),
	}
}

// Allow consumes one token of key.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, ok := rl.store[key]
	if !ok {
		for k, e := range rl.store {
			if now.Sub(e.updated) > rl.maxAge {
				delete(rl.store, k)
			}
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.store[key] = entry
	}
	entry.updated = now
	return entry.limiter.Allow()
}

func (rl *RateLimiter) limitBy(keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key != "" && !rl.Allow(key) {
				w.Header().Set("Retry-After", "1")
				writeFailure(w, r, http.StatusTooManyRequests, "RATE_LIMIT", "Demasiadas peticiones, inténtalo más tarde")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRateLimit throttles login submissions per client IP.
func LoginRateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return rl.limitBy(func(r *http.Request) string {
		if r.Method != http.MethodPost {
			return ""
		}
		return realIPFromRequest(r)
	})
}

// UserRateLimit throttles authenticated callers by subject id.
func UserRateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return rl.limitBy(GetSubject)
}

func realIPFromRequest(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
