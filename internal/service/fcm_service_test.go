package service

import (
	"context"
	"testing"

	"meetly/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushMessage_BookingUpdate(t *testing.T) {
	msg := pushMessage("tok", domain.NotifBookingUpdate, "Booking accepted", "See you soon",
		map[string]interface{}{"booking_id": uint(17), "status": domain.BookingStatusAccepted})

	assert.Equal(t, "tok", msg.Token)
	assert.Equal(t, map[string]string{"type": domain.NotifBookingUpdate, "booking_id": "17", "status": domain.BookingStatusAccepted}, msg.Data)

	require.NotNil(t, msg.Android)
	assert.Equal(t, "high", msg.Android.Priority)
	assert.Equal(t, "booking-17", msg.Android.CollapseKey)
	assert.Equal(t, "bookings", msg.Android.Notification.ChannelID)
	assert.Equal(t, "booking-17", msg.Android.Notification.Tag)

	require.NotNil(t, msg.APNS)
	assert.Equal(t, "10", msg.APNS.Headers["apns-priority"])
	assert.Equal(t, "booking-17", msg.APNS.Headers["apns-collapse-id"])
	assert.Equal(t, domain.NotifBookingUpdate, msg.APNS.Payload.Aps.Category)
	assert.Equal(t, "bookings", msg.APNS.Payload.Aps.ThreadID)
}

func TestPushMessage_DisputeCollapsesOnDispute(t *testing.T) {
	msg := pushMessage("tok", domain.NotifDisputeResolved, "Dispute resolved", "",
		map[string]interface{}{"dispute_id": uint(3), "booking_id": uint(17)})
	assert.Equal(t, "dispute-3", msg.Android.CollapseKey)
	assert.Equal(t, "safety", msg.Android.Notification.ChannelID)
}

func TestPushMessage_AccountIsNormalPriority(t *testing.T) {
	msg := pushMessage("tok", domain.NotifTierUpgrade, "Gold tier", "", map[string]interface{}{"tier": []string{"gold"}})
	assert.Equal(t, "normal", msg.Android.Priority)
	assert.Equal(t, "5", msg.APNS.Headers["apns-priority"])
	assert.Equal(t, domain.NotifTierUpgrade, msg.Android.CollapseKey)
	assert.Equal(t, `["gold"]`, msg.Data["tier"])
}

func TestFCMService_NilSendsNothing(t *testing.T) {
	var s *FCMService
	assert.NoError(t, s.SendToUser(context.Background(), "tok", domain.NotifBookingUpdate, "t", "b", nil))
}
