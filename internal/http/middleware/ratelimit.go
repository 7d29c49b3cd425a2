package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const bucketIdleTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client key. Each chat turn can cost
// several LLM calls, so turn endpoints are limited per client.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

type clientLimiter struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewRateLimiter allows perSecond requests per second per key with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether key may proceed and, if not, how long until it may.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	c, ok := rl.limiters[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = c
	}
	c.seen = now

	res := c.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, bucketIdleTTL
	}
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		return false, wait
	}
	return true, 0
}

// sweep drops idle clients at most once per idle period.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < bucketIdleTTL {
		return
	}
	rl.lastSweep = now
	for key, c := range rl.limiters {
		if now.Sub(c.seen) > bucketIdleTTL {
			delete(rl.limiters, key)
		}
	}
}

// RateLimit rejects requests over the limit with 429 and a Retry-After hint.
// A non-positive rate disables limiting.
func RateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return RateLimitWith(NewRateLimiter(perSecond, burst))
}

// RateLimitWith wraps handlers with an existing limiter keyed by client IP.
func RateLimitWith(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiter.Allow(ClientKey(r))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey identifies the caller for rate limiting. chi's RealIP middleware
// has already rewritten RemoteAddr; the port is dropped so that every
// connection from one host shares a bucket.
func ClientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
