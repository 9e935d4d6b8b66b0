package sms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMask(t *testing.T) {
	assert.Equal(t, "+*********678", Mask("+123456789678"))
	assert.Equal(t, "12", Mask("12"))
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, NewLogSender(zap.NewNop()).Send(context.Background(), "+254700000000", "code"))
}
