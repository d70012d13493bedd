package middleware

import (
	"strconv"

	"menu-gen-assistant/internal/core/ratelimit"
	"menu-gen-assistant/internal/pkg/common"
	"menu-gen-assistant/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit 限流中間件，需在 CallerIdentity 之後
func RateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.GetString(CallerIDKey)
		if caller == "" {
			caller = "ip:" + c.ClientIP()
		}

		decision, err := limiter.Allow(c.Request.Context(), caller)
		if err != nil {
			common.LogWarn("限流檢查失敗，放行請求", zap.String("caller_id", caller), zap.Error(err))
			c.Next()
			return
		}

		if !decision.Allowed {
			metrics.RateLimited.Inc()
			common.LogWarn("Rate limit exceeded",
				zap.String("caller_id", caller),
				zap.String("path", c.Request.URL.Path),
				zap.Duration("retry_after", decision.RetryAfter),
			)
			c.Header("Retry-After", strconv.Itoa(common.RetryAfterSeconds(decision.RetryAfter)))
			status, body := common.ErrorStatus(&common.RateLimitError{RetryAfter: decision.RetryAfter})
			c.AbortWithStatusJSON(status, body)
			return
		}

		c.Next()
	}
}
