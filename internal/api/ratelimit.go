package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	rateLimiterSweepInterval  = 5 * time.Minute
	rateLimiterStaleThreshold = 10 * time.Minute
)

// client pairs a token bucket with the moment it last made a request.
type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// rateLimiter hands each IP its own token bucket. Stale clients are swept
// opportunistically on the request path instead of by a background
// goroutine, so the limiter needs no lifecycle of its own.
type rateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	nextSweep time.Time
}

// newRateLimiter creates a limiter refilling r tokens per second with the
// given burst as the initial allowance.
func newRateLimiter(r float64, burst int) *rateLimiter {
	return &rateLimiter{
		clients:   make(map[string]*client),
		limit:     rate.Limit(r),
		burst:     burst,
		nextSweep: time.Now().Add(rateLimiterSweepInterval),
	}
}

// allow reports whether a request from ip may proceed.
func (rl *rateLimiter) allow(ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	if now.After(rl.nextSweep) {
		rl.sweep(now)
	}
	c, ok := rl.clients[ip]
	if !ok {
		c = &client{bucket: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	rl.mu.Unlock()

	// The bucket has its own lock; no need to hold ours for the take.
	return c.bucket.Allow()
}

// sweep drops clients idle past the stale threshold. Caller holds mu.
func (rl *rateLimiter) sweep(now time.Time) {
	for ip, c := range rl.clients {
		if now.Sub(c.lastSeen) > rateLimiterStaleThreshold {
			delete(rl.clients, ip)
		}
	}
	rl.nextSweep = now.Add(rateLimiterSweepInterval)
}

// rateLimitMiddleware rejects requests from IPs that exhausted their
// token bucket with a 429 and a Retry-After hint.
func rateLimitMiddleware(rl *rateLimiter, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustProxy)
			if rl.allow(ip) {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("rate limit exceeded",
				"ip", ip,
				"method", r.Method,
				"path", r.URL.Path,
			)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", logger)
		})
	}
}

// clientIP resolves the address to rate-limit on.
//
// With trustProxy set, X-Real-IP wins, then the first X-Forwarded-For
// entry; both must parse as an IP so header garbage never becomes a
// limiter key. Otherwise only RemoteAddr counts.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := headerIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
		xff := r.Header.Get("X-Forwarded-For")
		if first, _, ok := strings.Cut(xff, ","); ok {
			xff = first
		}
		if ip := headerIP(xff); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// headerIP validates a proxy-supplied address, returning "" when it is
// absent or not an IP.
func headerIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ip := net.ParseIP(raw)
	if ip == nil {
		return ""
	}
	return ip.String()
}
