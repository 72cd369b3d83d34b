package web

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/JonMunkholm/fyexchange/internal/web/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

var errRateLimited = errors.New("rate limit exceeded")

// rateLimiter keeps one token bucket per client IP. Buckets of clients that
// stay quiet for visitorTTL are evicted by the cache janitor.
type rateLimiter struct {
	mu       sync.Mutex
	visitors *cache.Cache
	limit    rate.Limit
	burst    int
}

const visitorTTL = 3 * time.Minute

// newRateLimiter allows perMinute requests per minute per IP, with bursts of
// up to perMinute requests.
func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &rateLimiter{
		visitors: cache.New(visitorTTL, time.Minute),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (rl *rateLimiter) bucket(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.visitors.Get(ip); ok {
		l := v.(*rate.Limiter)
		rl.visitors.SetDefault(ip, l)
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.visitors.SetDefault(ip, l)
	return l
}

// retryAfter is the number of seconds until one token is available again.
func (rl *rateLimiter) retryAfter() string {
	secs := math.Ceil(1 / float64(rl.limit))
	return strconv.Itoa(int(math.Max(secs, 1)))
}

func (rl *rateLimiter) middleware(s *Server) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.bucket(middleware.ClientIP(r)).Allow() {
				w.Header().Set("Retry-After", rl.retryAfter())
				s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
