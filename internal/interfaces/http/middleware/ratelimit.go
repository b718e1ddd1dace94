package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// RateLimitConfig controls per-client request throttling.
type RateLimitConfig struct {
	// RPS is the sustained request rate allowed per client.
	RPS float64

	// Burst is the instantaneous burst allowance per client.
	Burst int

	// KeyFunc derives the throttling key from a request.  Defaults to the
	// client IP.
	KeyFunc func(c *gin.Context) string

	// SkipPaths lists exact request paths exempt from throttling.
	SkipPaths []string

	// CleanupInterval is how often idle client buckets are swept.
	CleanupInterval time.Duration

	// ClientTTL is how long a client bucket survives without traffic
	// before the sweep drops it.
	ClientTTL time.Duration
}

// DefaultRateLimitConfig allows 10 req/s with a burst of 20 per client IP
// and exempts probe endpoints.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:             10,
		Burst:           20,
		SkipPaths:       []string{"/healthz", "/readyz", "/metrics"},
		CleanupInterval: 5 * time.Minute,
		ClientTTL:       10 * time.Minute,
	}
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests with one token bucket per client key.
// Buckets for idle clients are swept periodically so the map stays bounded.
type RateLimiter struct {
	config RateLimitConfig

	mu      sync.Mutex
	clients map[string]*clientEntry

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter builds a limiter and starts its sweep goroutine.  Call
// Stop when the server shuts down.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.RPS <= 0 {
		config.RPS = DefaultRateLimitConfig().RPS
	}
	if config.Burst <= 0 {
		config.Burst = int(math.Max(config.RPS, 1))
	}
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	if config.ClientTTL <= 0 {
		config.ClientTTL = 10 * time.Minute
	}

	rl := &RateLimiter{
		config:  config,
		clients: make(map[string]*clientEntry),
		stop:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Handler returns the gin middleware enforcing the limit.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	skip := make(map[string]struct{}, len(rl.config.SkipPaths))
	for _, p := range rl.config.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		lim := rl.limiterFor(rl.config.KeyFunc(c))
		res := lim.Reserve()
		if delay := res.Delay(); !res.OK() || delay > 0 {
			res.Cancel()
			retryAfter := int(math.Ceil(delay.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			header := c.Writer.Header()
			header.Set("Retry-After", strconv.Itoa(retryAfter))
			header.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Burst))
			header.Set("X-RateLimit-Remaining", "0")
			header.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(delay).Unix(), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":       string(errors.ErrCodeTooManyRequests),
					"message":    "rate limit exceeded",
					"request_id": GetRequestID(c),
				},
			})
			return
		}

		remaining := int(lim.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		header := c.Writer.Header()
		header.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Burst))
		header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Next()
	}
}

// Stop halts the sweep goroutine.  Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// ClientCount reports how many client buckets are live.
func (rl *RateLimiter) ClientCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	entry, ok := rl.clients[key]
	if !ok {
		entry = &clientEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.config.RPS), rl.config.Burst),
		}
		rl.clients[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, entry := range rl.clients {
				if now.Sub(entry.lastSeen) > rl.config.ClientTTL {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
