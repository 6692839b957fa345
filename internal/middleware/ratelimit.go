// Package middleware provides HTTP middleware for the isomatch API.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	// maxClients bounds the per-IP limiter table; the least recently used
	// client is evicted first.
	maxClients = 100_000

	// clientIdleTTL drops limiters of clients that went quiet.
	clientIdleTTL = 10 * time.Minute
)

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients *expirable.LRU[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
}

// NewRateLimiter creates a RateLimiter allowing ratePerSec sustained requests
// with bursts of up to burst.
func NewRateLimiter(ratePerSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: expirable.NewLRU[string, *rate.Limiter](maxClients, nil, clientIdleTTL),
		limit:   rate.Limit(ratePerSec),
		burst:   burst,
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.clients.Get(ip); ok {
		return l
	}

	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.clients.Add(ip, l)

	return l
}

// Handler returns Gin middleware that rejects clients over their budget with
// 429 and a Retry-After hint.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// ClientIP ignores forwarding headers: the router trusts no proxies.
		limiter := rl.limiterFor(c.ClientIP())

		res := limiter.Reserve()
		if !res.OK() {
			respondError(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")

			return
		}

		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
			respondError(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")

			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.burst))
		c.Next()
	}
}
