// Package sms delivers short text messages to phone numbers.
package sms

import (
	"context"

	"go.uber.org/zap"
)

type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// LogSender writes messages to the log instead of a carrier. Used until an
// SMS gateway is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, phone, message string) error {
	s.log.Debug("sms", zap.String("phone", Mask(phone)), zap.String("message", message))
	s.log.Info("sms queued", zap.String("phone", Mask(phone)))
	return nil
}

// Mask hides all but the last three digits of a phone number.
func Mask(phone string) string {
	if len(phone) <= 3 {
		return phone
	}
	b := []byte(phone)
	for i := 0; i < len(b)-3; i++ {
		if b[i] >= '0' && b[i] <= '9' {
			b[i] = '*'
		}
	}
	return string(b)
}
