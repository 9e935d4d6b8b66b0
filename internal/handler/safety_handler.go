package handler

import (
	"net/http"

	"meetly/internal/middleware"
	"meetly/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	safety *service.SafetyService
}

func NewReportHandler(safety *service.SafetyService) *ReportHandler {
	return &ReportHandler{safety: safety}
}

// Create handles POST /report-user.
func (h *ReportHandler) Create(c *gin.Context) {
	var req struct {
		ReportedUserID uint   `json:"reportedUserId" binding:"required"`
		Reason         string `json:"reason" binding:"required"`
		Description    string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := h.safety.Report(c.Request.Context(), middleware.GetUserID(c), service.ReportInput{
		ReportedUserID: req.ReportedUserID,
		Reason:         req.Reason,
		Description:    req.Description,
	}, service.RequestMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reportId": r.ID})
}
