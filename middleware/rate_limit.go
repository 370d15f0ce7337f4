package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/sharebox/utils"
)

const limiterIdleTTL = 5 * time.Minute

type limiterEntry struct {
	limiter *rate.Limiter
	expires time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
}

// NewRateLimiter allows perMinute requests per IP with a burst of half that.
func NewRateLimiter(perMinute int) *RateLimiter {
	perMinute = max(perMinute, 1)
	return &RateLimiter{
		entries: map[string]*limiterEntry{},
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/2, 1),
	}
}

// Middleware rejects requests over the limit with 429.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !l.Allow(ctx.ClientIP()) {
			utils.Abort(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			return
		}
		ctx.Next()
	}
}

// Allow consumes one token for key.
func (l *RateLimiter) Allow(key string) bool {
	return l.get(key).Allow()
}

func (l *RateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for k, e := range l.entries {
		if now.After(e.expires) {
			delete(l.entries, k)
		}
	}

	if e, ok := l.entries[key]; ok {
		e.expires = now.Add(limiterIdleTTL)
		return e.limiter
	}
	e := &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst), expires: now.Add(limiterIdleTTL)}
	l.entries[key] = e
	return e.limiter
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
