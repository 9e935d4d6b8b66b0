package handler

import (
	"net/http"

	"meetly/internal/middleware"
	"meetly/internal/service"

	"github.com/gin-gonic/gin"
)

type ReferralHandler struct {
	referrals *service.ReferralService
}

func NewReferralHandler(referrals *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{referrals: referrals}
}

// GetMyReferralCode handles GET /me/referral-code, creating the code on first use.
func (h *ReferralHandler) GetMyReferralCode(c *gin.Context) {
	rc, err := h.referrals.GetMyCode(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": rc.Code})
}

// Redeem handles POST /redeem-referral-code.
func (h *ReferralHandler) Redeem(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	rw, err := h.referrals.Redeem(c.Request.Context(), middleware.GetUserID(c), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rewardId": rw.ID, "status": rw.Status})
}
