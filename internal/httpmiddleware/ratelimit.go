package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const staleAfter = 10 * time.Minute

// RateLimiter throttles requests per client IP with an in-memory token
// bucket. Refill is continuous rather than whole-token, so a client held
// at the limit recovers one request every 60/perMinute seconds. State for
// idle clients is swept to keep the map bounded.
type RateLimiter struct {
	perMinute float64
	burst     float64

	mu        sync.Mutex
	clients   map[string]*clientBucket
	lastSweep time.Time
}

type clientBucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter allows perMinute requests per client, with a burst of the
// same size.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &RateLimiter{
		perMinute: float64(perMinute),
		burst:     float64(perMinute),
		clients:   make(map[string]*clientBucket),
		lastSweep: time.Now(),
	}
}

// Middleware rejects over-limit requests with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !rl.allow(ip, time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.sweep(now)

	b, ok := rl.clients[key]
	if !ok {
		rl.clients[key] = &clientBucket{tokens: rl.burst - 1, seen: now}
		return true
	}
	b.tokens += now.Sub(b.seen).Minutes() * rl.perMinute
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.seen = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < staleAfter {
		return
	}
	for key, b := range rl.clients {
		if now.Sub(b.seen) > staleAfter {
			delete(rl.clients, key)
		}
	}
	rl.lastSweep = now
}
