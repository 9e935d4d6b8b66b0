package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"meetly/internal/domain"
	"meetly/internal/logger"
	"meetly/internal/models"
	"meetly/internal/repository"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Notifier delivers a user-facing notification. Callers treat failures as best effort.
type Notifier interface {
	Notify(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) error
}

// Broadcaster streams a payload to a user's open sockets.
type Broadcaster interface {
	BroadcastToUser(userID uint, payload interface{})
}

type NotificationService struct {
	users repository.UserRepository
	repo  repository.NotificationRepository
	fcm   *FCMService
	hub   Broadcaster
}

func NewNotificationService(store repository.Repos, fcm *FCMService, hub Broadcaster) *NotificationService {
	return &NotificationService{
		users: store.Users(),
		repo:  store.Notifications(),
		fcm:   fcm,
		hub:   hub,
	}
}

// Notify persists the notification, pushes it over FCM when the user has a
// device token and streams it to any open notification socket.
func (s *NotificationService) Notify(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) error {
	n := &models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
	}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		n.Data = datatypes.JSON(b)
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.sendPush(ctx, userID, notifType, title, body, data)
	if s.hub != nil {
		s.hub.BroadcastToUser(userID, socketEnvelope(n))
	}
	return nil
}

func (s *NotificationService) sendPush(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) {
	if s.fcm == nil {
		return
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u.FCMToken == "" {
		return
	}
	if err := s.fcm.SendToUser(ctx, u.FCMToken, notifType, title, body, data); err != nil {
		logger.Log.Warn("push notification failed", zap.Uint("user_id", userID), zap.String("type", notifType), zap.Error(err))
	}
}

func (s *NotificationService) List(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error) {
	return s.repo.ListByUserID(ctx, userID, limit, offset)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	err := s.repo.MarkRead(ctx, id, userID, time.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Errorf(domain.KindNotFound, "notification not found")
	}
	return err
}

// socketEnvelope wraps a notification for the websocket stream.
func socketEnvelope(n *models.Notification) map[string]interface{} {
	return map[string]interface{}{"type": "notification", "notification": n}
}

// notifyAll sends to every recipient, logging failures.
func notifyAll(ctx context.Context, n Notifier, recipients []uint, notifType, title, body string, data map[string]interface{}) {
	if n == nil {
		return
	}
	for _, id := range recipients {
		if err := n.Notify(ctx, id, notifType, title, body, data); err != nil {
			logger.Log.Warn("notification failed", zap.Uint("user_id", id), zap.String("type", notifType), zap.Error(err))
		}
	}
}

// adminIDs lists admin users except the given one.
func adminIDs(ctx context.Context, users repository.UserRepository, except uint) []uint {
	ids, err := users.ListIDsByRole(ctx, domain.RoleAdmin)
	if err != nil {
		logger.Log.Warn("list admins failed", zap.Error(err))
		return nil
	}
	out := ids[:0]
	for _, id := range ids {
		if id != except {
			out = append(out, id)
		}
	}
	return out
}
