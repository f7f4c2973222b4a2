package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"flashsale/pkg/limiter"
	"flashsale/pkg/log"
	"flashsale/pkg/utils"
)

// RateLimitByIP throttles per client IP with an in-process token bucket.
func RateLimitByIP(rps float64, burst int) gin.HandlerFunc {
	l := limiter.NewLocalLimiter(rps, burst)

	return func(c *gin.Context) {
		ok, _ := l.Allow(c.Request.Context(), c.ClientIP())
		if !ok {
			utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeRateLimit),
				utils.CodeRateLimit, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimitByUser throttles per authenticated user with a shared
// limiter, runs after Auth. Fails open when the limiter backend is
// unreachable so the storefront stays up during a Redis outage.
func RateLimitByUser(l limiter.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := GetUserID(c)
		if !exists {
			c.Next()
			return
		}

		ok, err := l.Allow(c.Request.Context(), fmt.Sprintf("user:%d", userID))
		if err != nil {
			log.WithError(err).Warn("rate limiter unavailable, failing open")
			c.Next()
			return
		}
		if !ok {
			utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeRateLimit),
				utils.CodeRateLimit, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
