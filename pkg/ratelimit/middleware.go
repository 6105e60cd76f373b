package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/fund-service/fund_service/pkg/errors"
)

// KeyFunc extracts the rate limit key from the request
type KeyFunc func(*gin.Context) string

// Middleware rejects requests over quota with 429. Limiter failures fail open.
func Middleware(limiter Limiter, keyFunc KeyFunc, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		if key == "" {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Error("Rate limit check failed",
				zap.Error(err),
				zap.String("key", key))
			c.Next()
			return
		}

		if !allowed {
			logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":       apperrors.CodeRateLimit,
				"message":    "Too many requests, please try again later",
				"request_id": c.GetString("request_id"),
			})
			return
		}

		if remaining, err := limiter.GetRemaining(c.Request.Context(), key); err == nil {
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		}

		c.Next()
	}
}

// IPKeyFunc extracts IP address from request
func IPKeyFunc(c *gin.Context) string {
	return c.ClientIP()
}
