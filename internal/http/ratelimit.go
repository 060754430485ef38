package http

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
	. "github.com/roelfdiedericks/nexusrelay/internal/metrics"
	"github.com/roelfdiedericks/nexusrelay/internal/relay"
)

// idleLimiterTTL is how long an unused per-IP bucket is kept
const idleLimiterTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	limiters  map[string]*limiterEntry // IP -> bucket
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests per IP with
// the given burst (at least 1)
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters:  make(map[string]*limiterEntry),
		limit:     rate.Limit(perSecond),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow reports whether a request from ip may proceed now
func (r *RateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) > time.Minute {
		r.sweep(now)
	}

	entry, exists := r.limiters[ip]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for longer than idleLimiterTTL. Caller holds mu.
func (r *RateLimiter) sweep(now time.Time) {
	for ip, entry := range r.limiters {
		if now.Sub(entry.lastSeen) > idleLimiterTTL {
			delete(r.limiters, ip)
		}
	}
	r.lastSweep = now
}

// tracked returns the number of IPs with a live bucket
func (r *RateLimiter) tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// rateLimit middleware rejects clients over their budget with 429
func (s *Server) rateLimit(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter != nil && !s.rateLimiter.Allow(clientIP(r)) {
			MetricInc("http", "rate_limited")
			L_warn("http: rate limited", "ip", clientIP(r), "path", r.URL.Path, "request_id", relay.RequestID(r.Context()))
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limited"})
			return
		}
		handler(w, r)
	}
}
