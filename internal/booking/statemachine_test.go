package booking

import (
	"testing"

	"meetly/internal/domain"
	"meetly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name   string
		status string
		role   Role
		action Action
		to     string
		effect Effect
		noop   bool
		kind   domain.ErrorKind
	}{
		{"partner accepts", domain.BookingStatusPending, RolePartner, ActionAccept, domain.BookingStatusAccepted, EffectNone, false, ""},
		{"booker cannot accept", domain.BookingStatusPending, RoleBooker, ActionAccept, "", 0, false, domain.KindForbidden},
		{"accept twice", domain.BookingStatusAccepted, RolePartner, ActionAccept, "", 0, false, domain.KindInvalidTransition},
		{"partner rejects", domain.BookingStatusPending, RolePartner, ActionReject, domain.BookingStatusRejected, EffectRefund, false, ""},
		{"booker cancels pending", domain.BookingStatusPending, RoleBooker, ActionCancel, domain.BookingStatusCancelled, EffectRefund, false, ""},
		{"booker cancels accepted", domain.BookingStatusAccepted, RoleBooker, ActionCancel, domain.BookingStatusCancelled, EffectRefund, false, ""},
		{"partner cancels accepted", domain.BookingStatusAccepted, RolePartner, ActionCancel, domain.BookingStatusCancelled, EffectRefund, false, ""},
		{"partner cannot cancel pending", domain.BookingStatusPending, RolePartner, ActionCancel, "", 0, false, domain.KindInvalidTransition},
		{"cancel in progress", domain.BookingStatusInProgress, RoleBooker, ActionCancel, "", 0, false, domain.KindInvalidTransition},
		{"partner checks in", domain.BookingStatusAccepted, RolePartner, ActionCheckIn, domain.BookingStatusArrived, EffectNone, false, ""},
		{"partner checks in again", domain.BookingStatusArrived, RolePartner, ActionCheckIn, domain.BookingStatusArrived, EffectNone, true, ""},
		{"booker check in keeps status", domain.BookingStatusArrived, RoleBooker, ActionCheckIn, domain.BookingStatusArrived, EffectNone, false, ""},
		{"booker check in while pending", domain.BookingStatusPending, RoleBooker, ActionCheckIn, "", 0, false, domain.KindInvalidTransition},
		{"partner starts", domain.BookingStatusArrived, RolePartner, ActionStart, domain.BookingStatusInProgress, EffectNone, false, ""},
		{"start before arrival", domain.BookingStatusAccepted, RolePartner, ActionStart, "", 0, false, domain.KindInvalidTransition},
		{"partner finishes", domain.BookingStatusInProgress, RolePartner, ActionFinish, domain.BookingStatusCompletedPending, EffectNone, false, ""},
		{"booker cannot finish", domain.BookingStatusInProgress, RoleBooker, ActionFinish, "", 0, false, domain.KindForbidden},
		{"booker confirms", domain.BookingStatusCompletedPending, RoleBooker, ActionConfirm, domain.BookingStatusCompleted, EffectSettle, false, ""},
		{"confirm is idempotent", domain.BookingStatusCompleted, RoleBooker, ActionConfirm, domain.BookingStatusCompleted, EffectNone, true, ""},
		{"partner cannot confirm", domain.BookingStatusCompletedPending, RolePartner, ActionConfirm, "", 0, false, domain.KindForbidden},
		{"confirm in progress", domain.BookingStatusInProgress, RoleBooker, ActionConfirm, "", 0, false, domain.KindInvalidTransition},
		{"confirm disputed", domain.BookingStatusDisputed, RoleBooker, ActionConfirm, "", 0, false, domain.KindInvalidTransition},
		{"unknown action", domain.BookingStatusPending, RoleBooker, Action("teleport"), "", 0, false, domain.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Transition(tt.status, tt.role, tt.action)
			if tt.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.kind, domain.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, out.From)
			assert.Equal(t, tt.to, out.To)
			assert.Equal(t, tt.effect, out.Effect)
			assert.Equal(t, tt.noop, out.NoOp)
		})
	}
}

func TestTransition_TerminalStatesAcceptNothing(t *testing.T) {
	actions := []Action{ActionAccept, ActionReject, ActionCancel, ActionCheckIn, ActionStart, ActionFinish}
	for _, status := range []string{domain.BookingStatusRejected, domain.BookingStatusCancelled} {
		for _, role := range []Role{RoleBooker, RolePartner} {
			for _, a := range append(actions, ActionConfirm) {
				_, err := Transition(status, role, a)
				assert.Error(t, err, "%s %s %s", status, role, a)
			}
		}
	}
}

func TestInferAction(t *testing.T) {
	cases := map[string]struct {
		status string
		role   Role
		want   Action
	}{
		"partner pending":          {domain.BookingStatusPending, RolePartner, ActionAccept},
		"partner accepted":         {domain.BookingStatusAccepted, RolePartner, ActionCheckIn},
		"partner arrived":          {domain.BookingStatusArrived, RolePartner, ActionStart},
		"partner in progress":      {domain.BookingStatusInProgress, RolePartner, ActionFinish},
		"booker arrived":           {domain.BookingStatusArrived, RoleBooker, ActionCheckIn},
		"booker completed pending": {domain.BookingStatusCompletedPending, RoleBooker, ActionConfirm},
		"booker completed":         {domain.BookingStatusCompleted, RoleBooker, ActionConfirm},
	}
	for name, c := range cases {
		got, err := InferAction(c.status, c.role)
		require.NoError(t, err, name)
		assert.Equal(t, c.want, got, name)
	}

	_, err := InferAction(domain.BookingStatusPending, RoleBooker)
	assert.True(t, domain.IsKind(err, domain.KindInvalidTransition))
	_, err = InferAction(domain.BookingStatusCompletedPending, RolePartner)
	assert.True(t, domain.IsKind(err, domain.KindInvalidTransition))
}

func TestRoleOf(t *testing.T) {
	b := &models.Booking{BookerID: 1, PartnerID: 2}

	r, err := RoleOf(b, 1)
	require.NoError(t, err)
	assert.Equal(t, RoleBooker, r)

	r, err = RoleOf(b, 2)
	require.NoError(t, err)
	assert.Equal(t, RolePartner, r)

	_, err = RoleOf(b, 3)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
}

func TestIsDisputable(t *testing.T) {
	assert.False(t, IsDisputable(domain.BookingStatusPending))
	assert.True(t, IsDisputable(domain.BookingStatusAccepted))
	assert.True(t, IsDisputable(domain.BookingStatusCompleted))
	assert.False(t, IsDisputable(domain.BookingStatusDisputed))
	assert.False(t, IsDisputable(domain.BookingStatusCancelled))
	assert.False(t, IsDisputable(domain.BookingStatusRejected))
}
