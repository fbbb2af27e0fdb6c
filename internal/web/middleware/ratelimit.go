package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long a key may go unused before its bucket is dropped.
// Every bucket refills completely within a minute, well inside this window.
const idleLimiterTTL = 10 * time.Minute

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter keeps one token bucket per client key.
type KeyedRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*keyedLimiter
	r         rate.Limit
	b         int
	now       func() time.Time
	lastSweep time.Time
}

// NewKeyedRateLimiter allows perMinute requests per key with a burst of the same size.
func NewKeyedRateLimiter(perMinute int) *KeyedRateLimiter {
	perMinute = max(perMinute, 1)
	return &KeyedRateLimiter{
		limiters: make(map[string]*keyedLimiter),
		r:        rate.Every(time.Minute / time.Duration(perMinute)),
		b:        perMinute,
		now:      time.Now,
	}
}

// Limiter returns the bucket for key, creating it on first use.
// New keys trigger a sweep of idle buckets at most once per idleLimiterTTL.
func (k *KeyedRateLimiter) Limiter(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	entry, exists := k.limiters[key]
	if !exists {
		k.sweep(now)
		entry = &keyedLimiter{limiter: rate.NewLimiter(k.r, k.b)}
		k.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Len reports how many keys currently hold a bucket.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}

func (k *KeyedRateLimiter) sweep(now time.Time) {
	if now.Sub(k.lastSweep) < idleLimiterTTL {
		return
	}
	k.lastSweep = now
	for key, entry := range k.limiters {
		if now.Sub(entry.lastSeen) > idleLimiterTTL {
			delete(k.limiters, key)
		}
	}
}

// clientIP returns the host part of RemoteAddr (rewritten by chi's RealIP).
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitByIP rejects clients that exceed perMinute requests with 429.
func RateLimitByIP(perMinute int) func(http.Handler) http.Handler {
	limiter := NewKeyedRateLimiter(perMinute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Limiter(clientIP(r)).Allow() {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "Too many requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
