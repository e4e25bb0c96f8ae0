package middlewares

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/farm-to-table/utils"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	ttl     time.Duration
	clients map[string]*visitor
	mu      sync.Mutex
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		ttl:     3 * time.Minute,
		clients: make(map[string]*visitor),
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.clients[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[ip] = v
	}
	v.lastSeen = now

	// Bersihkan client yang sudah lama tidak aktif
	for key, other := range rl.clients {
		if now.Sub(other.lastSeen) > rl.ttl {
			delete(rl.clients, key)
		}
	}
	return v.limiter
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			utils.RespondError(c, http.StatusTooManyRequests, errors.New("Too many requests, please slow down"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// NewStrictRateLimiter is for login and register: 5 attempts per minute per IP.
func NewStrictRateLimiter() gin.HandlerFunc {
	return NewRateLimiter(5.0/60.0, 5).RateLimit()
}
