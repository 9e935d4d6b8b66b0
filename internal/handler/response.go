package handler

import (
	"errors"
	"net/http"
	"strconv"

	"meetly/internal/domain"
	"meetly/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var kindStatus = map[domain.ErrorKind]int{
	domain.KindValidation:        http.StatusBadRequest,
	domain.KindInsufficientFunds: http.StatusBadRequest,
	domain.KindInvalidTransition: http.StatusBadRequest,
	domain.KindConflict:          http.StatusBadRequest,
	domain.KindUnauthorized:      http.StatusUnauthorized,
	domain.KindForbidden:         http.StatusForbidden,
	domain.KindNotFound:          http.StatusNotFound,
	domain.KindRateLimited:       http.StatusTooManyRequests,
	domain.KindInternal:          http.StatusInternalServerError,
}

// respondError renders err as {"error", "kind"}. Causes of internal errors
// are logged, never rendered.
func respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	msg := "internal error"
	var de *domain.Error
	if errors.As(err, &de) {
		msg = de.Message
	}
	if status == http.StatusInternalServerError {
		logger.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "kind": kind})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "kind": domain.KindValidation})
}

// paramID parses a positive numeric path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

const idempotencyHeader = "Idempotency-Key"

// idempotencyKey returns the caller's key or a fresh one, echoed back in the
// response header either way.
func idempotencyKey(c *gin.Context) string {
	key := c.GetHeader(idempotencyHeader)
	if key == "" {
		key = uuid.NewString()
	}
	c.Header(idempotencyHeader, key)
	return key
}

// markReplay flags responses served from a stored idempotent result.
func markReplay(c *gin.Context, replayed bool) {
	if replayed {
		c.Header("Idempotent-Replayed", "true")
	}
}
