package middleware

import (
	"net/http"
	"strconv"

	"meetly/internal/domain"
	"meetly/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit takes one token from the caller's bucket for class. Behind
// AuthRequired the bucket is the account's; otherwise it is keyed on client IP
// plus a prefix of the bearer token.
func RateLimit(limiter *ratelimit.Limiter, class ratelimit.Class) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ratelimit.Identifier(c.ClientIP(), c.GetHeader("Authorization"))
		if uid := GetUserID(c); uid != 0 {
			key = ratelimit.UserIdentifier(uid)
		}
		take(c, limiter, key, class)
	}
}

// RateLimitByClient charges the client IP regardless of credentials. It runs
// ahead of AuthRequired so rejected and anonymous requests are metered too.
func RateLimitByClient(limiter *ratelimit.Limiter, class ratelimit.Class) gin.HandlerFunc {
	return func(c *gin.Context) {
		take(c, limiter, ratelimit.ClientIdentifier(c.ClientIP()), class)
	}
}

func take(c *gin.Context, limiter *ratelimit.Limiter, key string, class ratelimit.Class) {
	res := limiter.Check(c.Request.Context(), key, class)
	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if !res.Allowed {
		c.Header("Retry-After", strconv.Itoa(res.RetryAfterSeconds()))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": "rate limit exceeded",
			"kind":  domain.KindRateLimited,
		})
		return
	}
	c.Next()
}
