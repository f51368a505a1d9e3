package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter middleware implements sliding window rate limiting using Redis
type RateLimiter struct {
	client *redis.Client
	rps    int           // Requests per second
	burst  int           // Maximum burst size
	window time.Duration // Window size (typically 1 second)
	log    *zap.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *redis.Client, rps, burst int, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		rps:    rps,
		burst:  burst,
		window: time.Second,
		log:    log,
	}
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Key by authenticated user, falling back to client IP
		userID := GetUserID(c)
		if userID == "" {
			userID = c.ClientIP()
		}

		allowed, remaining, err := rl.checkLimit(c.Request.Context(), userID)
		if err != nil {
			// On Redis error, log and allow request (fail open)
			rl.log.Warn("rate limiter redis error",
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", rl.rps))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    "RATE_LIMITED",
				"message": "Too many requests. Please try again later.",
			})
			return
		}

		c.Next()
	}
}

// checkLimit checks if the request is within rate limits using sliding window log algorithm
func (rl *RateLimiter) checkLimit(ctx context.Context, userID string) (allowed bool, remaining int, err error) {
	now := time.Now().UnixMilli()
	windowStart := now - rl.window.Milliseconds()
	key := fmt.Sprintf("ratelimit:%s", userID)

	pipe := rl.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now),
		Member: now,
	})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, 2*rl.window)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return false, 0, err
	}

	count := int(countCmd.Val())
	remaining = rl.burst - count
	if remaining < 0 {
		remaining = 0
	}
	allowed = count <= rl.burst

	return allowed, remaining, nil
}
