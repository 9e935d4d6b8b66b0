package handler

import (
	"net/http"

	"meetly/internal/middleware"
	"meetly/internal/service"

	"github.com/gin-gonic/gin"
)

type OTPHandler struct {
	otp *service.OTPService
}

func NewOTPHandler(otp *service.OTPService) *OTPHandler {
	return &OTPHandler{otp: otp}
}

// Send handles POST /send-otp.
func (h *OTPHandler) Send(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.otp.Send(c.Request.Context(), middleware.GetUserID(c), req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Verify handles POST /verify-otp.
func (h *OTPHandler) Verify(c *gin.Context) {
	var req struct {
		Phone   string `json:"phone" binding:"required"`
		OTPCode string `json:"otpCode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.otp.Verify(c.Request.Context(), middleware.GetUserID(c), req.Phone, req.OTPCode); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "phoneVerified": true})
}
