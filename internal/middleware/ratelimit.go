package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per authenticated user. Used on order
// placement, where a stuck retry loop could otherwise drain stock mirrors
// and hammer the ledger.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[int64]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *RateLimiter) limiterFor(userID int64) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.limiters[userID] = limiter
	}
	return limiter
}

// Middleware rejects requests beyond the per-user rate.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(UserID(c)).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "message": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
