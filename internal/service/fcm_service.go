package service

import (
	"context"
	"encoding/json"
	"fmt"

	"meetly/internal/domain"
	"meetly/internal/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FCMService sends push notifications via Firebase Cloud Messaging.
// A nil *FCMService is valid and sends nothing.
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates an FCM service. Returns nil if Firebase is not configured.
func NewFCMService(ctx context.Context, serviceAccountPath string) *FCMService {
	if serviceAccountPath == "" {
		return nil
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		logger.Log.Error("fcm: init firebase app", zap.Error(err))
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		logger.Log.Error("fcm: messaging client", zap.Error(err))
		return nil
	}
	return &FCMService{client: client}
}

// pushChannel groups notification types into Android channels and APNS threads.
func pushChannel(notifType string) string {
	switch notifType {
	case domain.NotifBookingRequest, domain.NotifBookingUpdate:
		return "bookings"
	case domain.NotifDisputeFiled, domain.NotifDisputeResolved, domain.NotifUserReported:
		return "safety"
	default:
		return "account"
	}
}

// pushMessage builds the FCM message for a typed notification. Updates about
// the same booking or dispute share a collapse key so the device keeps only
// the newest one.
func pushMessage(token, notifType, title, body string, data map[string]interface{}) *messaging.Message {
	payload := pushData(notifType, data)
	channel := pushChannel(notifType)
	collapse := notifType
	if id, ok := payload["dispute_id"]; ok {
		collapse = "dispute-" + id
	} else if id, ok := payload["booking_id"]; ok {
		collapse = "booking-" + id
	}

	priority, apnsPriority := "normal", "5"
	if channel != "account" {
		priority, apnsPriority = "high", "10"
	}

	return &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         payload,
		Android: &messaging.AndroidConfig{
			Priority:    priority,
			CollapseKey: collapse,
			Notification: &messaging.AndroidNotification{
				ChannelID: channel,
				Tag:       collapse,
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":    apnsPriority,
				"apns-collapse-id": collapse,
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:    "default",
					Category: notifType,
					ThreadID: channel,
				},
			},
		},
	}
}

// SendToUser pushes a typed notification to one device token.
func (s *FCMService) SendToUser(ctx context.Context, fcmToken, notifType, title, body string, data map[string]interface{}) error {
	if s == nil || fcmToken == "" {
		return nil
	}
	id, err := s.client.Send(ctx, pushMessage(fcmToken, notifType, title, body, data))
	if err != nil {
		return fmt.Errorf("fcm send %s: %w", notifType, err)
	}
	logger.Log.Debug("fcm: pushed", zap.String("type", notifType), zap.String("message_id", id))
	return nil
}

// pushData flattens data for FCM, whose data values must be strings.
func pushData(notifType string, data map[string]interface{}) map[string]string {
	out := map[string]string{"type": notifType}
	for k, v := range data {
		switch val := v.(type) {
		case string:
			out[k] = val
		case uint, uint64, int, int64:
			out[k] = fmt.Sprintf("%d", val)
		default:
			b, _ := json.Marshal(v)
			out[k] = string(b)
		}
	}
	return out
}
