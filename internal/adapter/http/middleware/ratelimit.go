package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-client token bucket keyed by IP address.
// Idle buckets are swept as a side effect of serving requests, so no
// background goroutine is needed to bound memory.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	rate      rate.Limit
	burst     int
	lifetime  time.Duration
	lastSweep time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter allowing r requests per second
// with bursts of b. Buckets idle for over an hour are evicted.
func NewRateLimiter(r float64, b int) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*client),
		rate:      rate.Limit(r),
		burst:     b,
		lifetime:  time.Hour,
		lastSweep: time.Now(),
	}
}

// Limit rejects requests exceeding the client's bucket with 429.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	c, ok := rl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now

	// At most one sweep per lifetime, amortized across requests.
	if now.Sub(rl.lastSweep) >= rl.lifetime {
		rl.sweepLocked(now)
	}

	return c.limiter.Allow()
}

// sweepLocked evicts buckets idle past their lifetime. Callers must
// hold rl.mu.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-rl.lifetime)
	for ip, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}

	rl.lastSweep = now
}

// clientIP extracts the originating address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First entry is the original client.
		if idx := strings.IndexByte(forwarded, ','); idx > 0 {
			return strings.TrimSpace(forwarded[:idx])
		}

		return strings.TrimSpace(forwarded)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
