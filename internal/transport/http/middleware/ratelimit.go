package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/solace-api/internal/application/audit"
	"github.com/solace-api/internal/domain"
	redisinfra "github.com/solace-api/internal/infrastructure/redis"
	"github.com/solace-api/internal/pkg/clientip"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-IP token-bucket rate limiter with automatic
// stale-entry cleanup. It is the coarse process-local shield in front of the
// distributed sliding-window limiter.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	r        rate.Limit
	burst    int
}

// NewRateLimiter creates a per-IP limiter: r requests/second, burst up to burst requests.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		r:        r,
		burst:    burst,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.limiters[ip]; ok {
		v.lastSeen = time.Now()
		return v.limiter
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.limiters[ip] = &ipLimiter{limiter: l, lastSeen: time.Now()}
	return l
}

// cleanup removes stale entries every 5 minutes.
func (rl *RateLimiter) cleanup() {
	for {
		time.Sleep(5 * time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.limiters {
			if time.Since(v.lastSeen) > 10*time.Minute {
				delete(rl.limiters, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Limit is the middleware handler that enforces the rate limit per caller IP.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.get(clientip.FromRequest(r)).Allow() {
			writeJSONError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OperationLimit enforces the distributed sliding window for one named
// operation with its own (limit, window) pair. Buckets are keyed by
// operation and caller identity, so configurations never cross-contaminate.
func OperationLimit(l *redisinfra.SlidingWindowLimiter, auditor *audit.Recorder, operation string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := clientip.FromRequest(r)
			d := l.Check(r.Context(), operation, caller, limit, window)
			if !d.Allowed {
				auditor.Record(r.Context(), domain.AuditRateLimited, caller, map[string]string{"operation": operation})
				w.Header().Set("Retry-After", d.RetryAfterSeconds())
				writeJSONError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
