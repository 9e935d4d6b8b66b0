package handler

import (
	"net/http"

	"meetly/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// Health handles GET /healthz. A degraded limiter still serves traffic from
// process memory, so the status stays 200.
func Health(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		degraded := limiter.Degraded()
		if degraded {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{"status": status, "rateLimiterDegraded": degraded})
	}
}
