package handler

import (
	"net/http"
	"strings"

	"meetly/internal/domain"
	"meetly/internal/middleware"
	"meetly/internal/service"
	"meetly/pkg/cloudinary"

	"github.com/gin-gonic/gin"
)

const maxEvidenceBytes = 10 << 20

type DisputeHandler struct {
	disputes *service.DisputeService
	cloud    cloudinary.Client
}

// NewDisputeHandler wires evidence uploads to cloud. A nil cloud disables them.
func NewDisputeHandler(disputes *service.DisputeService, cloud cloudinary.Client) *DisputeHandler {
	return &DisputeHandler{disputes: disputes, cloud: cloud}
}

// Create handles POST /create-dispute.
func (h *DisputeHandler) Create(c *gin.Context) {
	var req struct {
		DateOrderID  uint     `json:"dateOrderId" binding:"required"`
		Reason       string   `json:"reason" binding:"required"`
		Description  string   `json:"description" binding:"required"`
		EvidenceURLs []string `json:"evidenceUrls"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	d, err := h.disputes.File(c.Request.Context(), middleware.GetUserID(c), service.FileDisputeInput{
		DateOrderID:  req.DateOrderID,
		Reason:       req.Reason,
		Description:  req.Description,
		EvidenceURLs: req.EvidenceURLs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "disputeId": d.ID})
}

// UploadEvidence handles multipart POST /upload-evidence and returns the
// stored image URL for use in evidenceUrls.
func (h *DisputeHandler) UploadEvidence(c *gin.Context) {
	if h.cloud == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "evidence uploads are not configured", "kind": domain.KindInternal})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file required")
		return
	}
	if file.Size > maxEvidenceBytes {
		badRequest(c, "file too large")
		return
	}
	if ct := file.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		badRequest(c, "evidence must be an image")
		return
	}
	f, err := file.Open()
	if err != nil {
		badRequest(c, "could not read file")
		return
	}
	defer f.Close()

	up, err := h.cloud.UploadEvidence(c.Request.Context(), f, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, up)
}
