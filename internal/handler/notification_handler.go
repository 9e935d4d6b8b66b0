package handler

import (
	"net/http"

	"meetly/internal/middleware"
	"meetly/internal/repository"
	"meetly/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *service.NotificationService
	users         repository.UserRepository
}

func NewNotificationHandler(notifications *service.NotificationService, users repository.UserRepository) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, users: users}
}

func (h *NotificationHandler) List(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, err := h.notifications.List(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RegisterFCMToken handles POST /me/fcm-token. An empty token stops pushes.
func (h *NotificationHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(req.Token) > 512 {
		badRequest(c, "token too long")
		return
	}
	if err := h.users.SetFCMToken(c.Request.Context(), middleware.GetUserID(c), req.Token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
