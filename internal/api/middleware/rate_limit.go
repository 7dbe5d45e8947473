package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter 令牌桶限流器
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
}

// NewRateLimiter 創建新的限流器
func NewRateLimiter(requests int, window time.Duration, now time.Time) *RateLimiter {
	return &RateLimiter{
		tokens:   float64(requests),
		capacity: float64(requests),
		rate:     float64(requests) / window.Seconds(),
		lastTime: now,
	}
}

// Allow 檢查是否允許請求
func (rl *RateLimiter) Allow(now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// 依經過時間補充令牌
	elapsed := now.Sub(rl.lastTime).Seconds()
	rl.lastTime = now
	if elapsed > 0 {
		rl.tokens = min(rl.capacity, rl.tokens+elapsed*rl.rate)
	}

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// idle 令牌已補滿，代表該用戶端已閒置
func (rl *RateLimiter) idle(now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.tokens+now.Sub(rl.lastTime).Seconds()*rl.rate >= rl.capacity
}

// ClientLimiter 以用戶端為單位的限流器集合
type ClientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*RateLimiter
	requests int
	window   time.Duration
	now      func() time.Time
	lastScan time.Time
}

// NewClientLimiter 創建用戶端限流器
func NewClientLimiter(requests int, window time.Duration) *ClientLimiter {
	return &ClientLimiter{
		limiters: make(map[string]*RateLimiter),
		requests: requests,
		window:   window,
		now:      time.Now,
	}
}

// Allow 檢查指定用戶端是否允許請求
func (cl *ClientLimiter) Allow(key string) bool {
	now := cl.now()

	cl.mu.Lock()
	limiter, ok := cl.limiters[key]
	if !ok {
		limiter = NewRateLimiter(cl.requests, cl.window, now)
		cl.limiters[key] = limiter
	}
	// 每個時間窗清除一次閒置的用戶端
	if now.Sub(cl.lastScan) > cl.window {
		for k, l := range cl.limiters {
			if k != key && l.idle(now) {
				delete(cl.limiters, k)
			}
		}
		cl.lastScan = now
	}
	cl.mu.Unlock()

	return limiter.Allow(now)
}

// RateLimit 限流中間件，以工作階段識別碼（沒有時用 IP）區分用戶端
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	limiter := NewClientLimiter(requests, window)

	return func(c *gin.Context) {
		key := c.GetHeader(SessionHeader)
		if key == "" {
			key = c.ClientIP()
		}

		if !limiter.Allow(key) {
			common.LogInfo("Rate limit exceeded",
				zap.String("client", key),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"code":        common.ErrCodeTooManyRequests,
				"retry_after": window.Seconds(),
			})
			return
		}

		c.Next()
	}
}
