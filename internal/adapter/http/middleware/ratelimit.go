package middleware

import (
	"fmt"
	"strconv"
	"time"

	"settlement-gateway/internal/core/ports"
	"settlement-gateway/pkg/apperror"
	"settlement-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// Endpoint groups.
const (
	GroupAdmin           = "admin"
	GroupBusinesses      = "businesses"
	GroupPaymentsCreate  = "payments_create"
	GroupPaymentsExecute = "payments_execute"
	GroupPaymentsCancel  = "payments_cancel"
	GroupRead            = "read"
)

// DefaultRateLimitRules returns the limits per endpoint group.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		GroupAdmin:           {Limit: 10, Window: time.Minute},
		GroupBusinesses:      {Limit: 30, Window: time.Minute},
		GroupPaymentsCreate:  {Limit: 100, Window: time.Minute},
		GroupPaymentsExecute: {Limit: 60, Window: time.Minute},
		GroupPaymentsCancel:  {Limit: 30, Window: time.Minute},
		GroupRead:            {Limit: 300, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// Store failures let the request through (degraded mode).
func RateLimiter(store ports.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int64(time.Until(result.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys writes by proven signer and everything else by client IP.
func extractIdentifier(c *gin.Context) string {
	if signer, ok := SignerOf(c); ok {
		return string(signer)
	}
	return c.ClientIP()
}
