package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"meetly/config"
	"meetly/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingSender struct {
	phone string
	msg   string
}

func (c *capturingSender) Send(_ context.Context, phone, message string) error {
	c.phone, c.msg = phone, message
	return nil
}

func (c *capturingSender) code() string {
	return c.msg[len(c.msg)-6:]
}

func newOTPFixture(t *testing.T) (*fixture, *OTPService, *capturingSender) {
	t.Helper()
	f := newFixture(t)
	sender := &capturingSender{}
	return f, NewOTPService(f.store, sender, config.OTPConfig{TTL: 5 * time.Minute, MaxAttempts: 3}), sender
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestOTP_SendAndVerify(t *testing.T) {
	f, svc, sender := newOTPFixture(t)

	res, err := svc.Send(f.ctx, f.payer.ID, "+254 712-345-678")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "+254712345678", sender.phone)
	assert.True(t, strings.HasPrefix(sender.msg, "Your Meetly verification code is "))

	require.NoError(t, svc.Verify(f.ctx, f.payer.ID, "+254712345678", sender.code()))

	u, err := f.store.Users().GetByID(f.ctx, f.payer.ID)
	require.NoError(t, err)
	assert.Equal(t, "+254712345678", u.Phone)
	assert.NotNil(t, u.PhoneVerifiedAt)

	// A consumed code cannot be used twice.
	assertKind(t, svc.Verify(f.ctx, f.payer.ID, "+254712345678", sender.code()), domain.KindNotFound)
}

func TestOTP_InvalidInput(t *testing.T) {
	f, svc, _ := newOTPFixture(t)

	_, err := svc.Send(f.ctx, f.payer.ID, "call me")
	assertKind(t, err, domain.KindValidation)
	assertKind(t, svc.Verify(f.ctx, f.payer.ID, "+254712345678", "12345"), domain.KindValidation)
	assertKind(t, svc.Verify(f.ctx, f.payer.ID, "+254712345678", "123456"), domain.KindNotFound)
}

func TestOTP_NewCodeReplacesOld(t *testing.T) {
	f, svc, sender := newOTPFixture(t)

	_, err := svc.Send(f.ctx, f.payer.ID, "+254712345678")
	require.NoError(t, err)
	first := sender.code()
	_, err = svc.Send(f.ctx, f.payer.ID, "+254712345678")
	require.NoError(t, err)
	second := sender.code()

	if first != second {
		assertKind(t, svc.Verify(f.ctx, f.payer.ID, "+254712345678", first), domain.KindValidation)
	}
	require.NoError(t, svc.Verify(f.ctx, f.payer.ID, "+254712345678", second))
}

func TestOTP_AttemptsAreCounted(t *testing.T) {
	f, svc, sender := newOTPFixture(t)
	_, err := svc.Send(f.ctx, f.payer.ID, "+254712345678")
	require.NoError(t, err)
	bad := wrongCode(sender.code())

	for i := 0; i < 3; i++ {
		err := svc.Verify(f.ctx, f.payer.ID, "+254712345678", bad)
		assertKind(t, err, domain.KindValidation)
		assert.Contains(t, err.Error(), "incorrect")
	}
	err = svc.Verify(f.ctx, f.payer.ID, "+254712345678", sender.code())
	assertKind(t, err, domain.KindValidation)
	assert.Contains(t, err.Error(), "too many attempts")
}

func TestOTP_Expired(t *testing.T) {
	f, svc, sender := newOTPFixture(t)
	_, err := svc.Send(f.ctx, f.payer.ID, "+254712345678")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	err = svc.Verify(f.ctx, f.payer.ID, "+254712345678", sender.code())
	assertKind(t, err, domain.KindValidation)
	assert.Contains(t, err.Error(), "expired")
}
