package handler

import (
	"net/http"

	"meetly/internal/middleware"
	"meetly/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	disputes *service.DisputeService
	settings *service.SettingsService
}

func NewAdminHandler(disputes *service.DisputeService, settings *service.SettingsService) *AdminHandler {
	return &AdminHandler{disputes: disputes, settings: settings}
}

// ListDisputes handles GET /admin/disputes?status=pending.
func (h *AdminHandler) ListDisputes(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, err := h.disputes.List(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "limit": limit, "offset": offset})
}

// GetDispute handles GET /admin/disputes/:id.
func (h *AdminHandler) GetDispute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	d, err := h.disputes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// InvestigateDispute handles POST /admin/disputes/:id/investigate.
func (h *AdminHandler) InvestigateDispute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	d, err := h.disputes.MarkInvestigating(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ResolveDispute handles POST /admin/disputes/:id/resolve.
func (h *AdminHandler) ResolveDispute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Resolution string `json:"resolution" binding:"required"`
		Amount     int64  `json:"amount"`
		Note       string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	d, err := h.disputes.Resolve(c.Request.Context(), middleware.GetUserID(c), id, service.ResolveDisputeInput{
		Resolution: req.Resolution,
		Amount:     req.Amount,
		Note:       req.Note,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GetSettings handles GET /admin/settings.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.All(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settings})
}

// UpdateSettings handles PUT /admin/settings.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req struct {
		Settings map[string]string `json:"settings" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.settings.Update(c.Request.Context(), middleware.GetUserID(c), req.Settings); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
