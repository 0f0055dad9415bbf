package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// 空闲超过该时长的客户端限流器会被清理
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware 按客户端 IP 限流的中间件
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	var (
		mu        sync.Mutex
		clients   = make(map[string]*clientLimiter)
		lastSweep = time.Now()
	)

	get := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if now.Sub(lastSweep) > limiterIdleTTL {
			for k, cl := range clients {
				if now.Sub(cl.lastSeen) > limiterIdleTTL {
					delete(clients, k)
				}
			}
			lastSweep = now
		}

		cl, ok := clients[key]
		if !ok {
			cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			clients[key] = cl
		}
		cl.lastSeen = now
		return cl.limiter
	}

	return func(c *gin.Context) {
		if !get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Code:    http.StatusTooManyRequests,
				Message: "too many requests",
			})
			return
		}
		c.Next()
	}
}
