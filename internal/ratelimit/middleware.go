package ratelimit

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
)

// IPRateLimitMiddleware creates middleware for IP-based rate limiting
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		result := rl.AllowIP(c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			rl.reject(c, result)
			return
		}
		c.Next()
	}
}

// EndpointRateLimitMiddleware limits a single route group on top of the
// per-IP limit, e.g. spreadsheet uploads.
func (rl *RateLimiter) EndpointRateLimitMiddleware(endpoint string, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := rl.AllowEndpoint(endpoint, c.ClientIP(), perMinute)

		c.Header("X-RateLimit-Endpoint-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Endpoint-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			rl.reject(c, result)
			return
		}
		c.Next()
	}
}

// reject hands a rate limit error to the error handler.
func (rl *RateLimiter) reject(c *gin.Context, result Result) {
	if rl.metrics != nil {
		rl.metrics.IncrementRateLimitBlock()
	}
	retryAfter := strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds())))
	c.Header("Retry-After", retryAfter)
	_ = c.Error(apperrors.NewRateLimitError(retryAfter))
	c.Abort()
}
