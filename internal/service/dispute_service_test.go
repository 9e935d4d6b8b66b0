package service

import (
	"encoding/json"
	"testing"

	"meetly/internal/domain"
	"meetly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) fileDispute(t *testing.T, callerID, bookingID uint) *models.Dispute {
	t.Helper()
	d, err := f.disputes.File(f.ctx, callerID, FileDisputeInput{
		DateOrderID:  bookingID,
		Reason:       domain.DisputeReasonNoShow,
		Description:  "Partner never arrived",
		EvidenceURLs: []string{"https://res.cloudinary.com/meetly/image/upload/v1/evidence/a.jpg"},
	})
	require.NoError(t, err)
	return d
}

func TestFileDispute_FreezesBookingAndNotifies(t *testing.T) {
	f := newFixture(t)
	id := f.book(t)
	f.advance(t, id, domain.BookingStatusArrived)

	d := f.fileDispute(t, f.payer.ID, id)
	assert.Equal(t, domain.DisputeStatusPending, d.Status)
	assert.Equal(t, domain.BookingStatusArrived, d.PreviousStatus)
	assert.Equal(t, f.payer.ID, d.FiledBy)

	var urls []string
	require.NoError(t, json.Unmarshal(d.EvidenceURLs, &urls))
	assert.Len(t, urls, 1)

	assert.Equal(t, domain.BookingStatusDisputed, f.booking(t, id).Status)
	assert.Equal(t, 1, f.notes.count(f.partner.ID, domain.NotifDisputeFiled))
	assert.Equal(t, 1, f.notes.count(f.admin.ID, domain.NotifDisputeFiled))

	// Escrow stays frozen while disputed.
	assert.Equal(t, int64(300_000), f.wallet(t, f.payer.ID).Escrow)
	_, _, err := f.bookings.Transition(f.ctx, f.partner.ID, TransitionInput{BookingID: id, Action: "start"})
	assertKind(t, err, domain.KindInvalidTransition)
}

func TestFileDispute_Errors(t *testing.T) {
	f := newFixture(t)
	pending := f.book(t)
	accepted := f.book(t)
	f.advance(t, accepted, domain.BookingStatusAccepted)
	stranger := f.newUser(t, domain.RoleUser, 0)

	valid := func(id uint) FileDisputeInput {
		return FileDisputeInput{DateOrderID: id, Reason: domain.DisputeReasonLateArrival, Description: "late"}
	}
	tests := []struct {
		name   string
		caller uint
		in     FileDisputeInput
		kind   domain.ErrorKind
	}{
		{"missing booking id", f.payer.ID, FileDisputeInput{Reason: domain.DisputeReasonOther, Description: "x"}, domain.KindValidation},
		{"unknown reason", f.payer.ID, FileDisputeInput{DateOrderID: accepted, Reason: "bored", Description: "x"}, domain.KindValidation},
		{"no description", f.payer.ID, FileDisputeInput{DateOrderID: accepted, Reason: domain.DisputeReasonOther}, domain.KindValidation},
		{"bad evidence", f.payer.ID, FileDisputeInput{DateOrderID: accepted, Reason: domain.DisputeReasonOther, Description: "x", EvidenceURLs: []string{"ftp://x/y"}}, domain.KindValidation},
		{"unknown booking", f.payer.ID, valid(999), domain.KindNotFound},
		{"not a party", stranger.ID, valid(accepted), domain.KindForbidden},
		{"pending booking", f.payer.ID, valid(pending), domain.KindInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.disputes.File(f.ctx, tt.caller, tt.in)
			assertKind(t, err, tt.kind)
		})
	}
	assert.Equal(t, domain.BookingStatusAccepted, f.booking(t, accepted).Status)
}

func TestFileDispute_OnePerBooking(t *testing.T) {
	f := newFixture(t)
	id := f.book(t)
	f.advance(t, id, domain.BookingStatusAccepted)
	f.fileDispute(t, f.payer.ID, id)

	_, err := f.disputes.File(f.ctx, f.partner.ID, FileDisputeInput{DateOrderID: id, Reason: domain.DisputeReasonOther, Description: "again"})
	assertKind(t, err, domain.KindConflict)
}

func TestResolve_Refund(t *testing.T) {
	f := newFixture(t)
	id := f.book(t)
	f.advance(t, id, domain.BookingStatusAccepted)
	d := f.fileDispute(t, f.payer.ID, id)

	got, err := f.disputes.Resolve(f.ctx, f.admin.ID, d.ID, ResolveDisputeInput{Resolution: domain.ResolutionRefund, Note: "no show confirmed"})
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStatusResolved, got.Status)
	assert.Equal(t, int64(300_000), got.ResolutionAmount)
	require.NotNil(t, got.ResolvedBy)
	assert.Equal(t, f.admin.ID, *got.ResolvedBy)

	assert.Equal(t, domain.BookingStatusCancelled, f.booking(t, id).Status)
	w := f.wallet(t, f.payer.ID)
	assert.Equal(t, int64(1_000_000), w.Balance)
	assert.Zero(t, w.Escrow)
	assert.Zero(t, f.wallet(t, f.partner.ID).Balance)
	assert.Equal(t, []string{domain.TxTypeEscrowHold, domain.TxTypeDisputeRefund}, f.ledgerTypes(f.payer.ID))

	assert.Equal(t, 1, f.notes.count(f.payer.ID, domain.NotifDisputeResolved))
	assert.Equal(t, 1, f.notes.count(f.partner.ID, domain.NotifDisputeResolved))

	trail := f.mem.AuditTrail()
	require.NotEmpty(t, trail)
	assert.Equal(t, "dispute.resolve", trail[len(trail)-1].Action)
}

func TestResolve_Release(t *testing.T) {
	f := newFixture(t)
	id := f.book(t)
	f.advance(t, id, domain.BookingStatusCompletedPending)
	d := f.fileDispute(t, f.partner.ID, id)

	_, err := f.disputes.Resolve(f.ctx, f.admin.ID, d.ID, ResolveDisputeInput{Resolution: domain.ResolutionRelease})
	require.NoError(t, err)

	b := f.booking(t, id)
	assert.Equal(t, domain.BookingStatusCompleted, b.Status)
	assert.NotNil(t, b.EscrowReleasedAt)
	assert.Equal(t, int64(228_000), f.wallet(t, f.partner.ID).Balance)
	payer := f.wallet(t, f.payer.ID)
	assert.Zero(t, payer.Escrow)
	assert.Equal(t, int64(300_000), payer.TotalSpending)
}

func TestResolve_PartialRefund(t *testing.T) {
	f := newFixture(t)
	id := f.book(t)
	f.advance(t, id, domain.BookingStatusInProgress)
	d := f.fileDispute(t, f.payer.ID, id)

	_, err := f.disputes.Resolve(f.ctx, f.admin.ID, d.ID, ResolveDisputeInput{Resolution: domain.ResolutionPartialRefund, Amount: 300_000})
	assertKind(t, err, domain.KindValidation)
	_, err = f.disputes.Resolve(f.ctx, f.admin.ID, d.ID, ResolveDisputeInput{Resolution: domain.ResolutionPartialRefund})
	assertKind(t, err, domain.KindValidation)

	got, err := f.disputes.Resolve(f.ctx, f.admin.ID, d.ID, ResolveDisputeInput{Resolution: domain.ResolutionPartialRefund, Amount: 100_000})
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), got.ResolutionAmount)

	payer := f.wallet(t, f.payer.ID)
	assert.Equal(t, int64(800_000), payer.Balance)
	assert.Zero(t, payer.Escrow)
	assert.Equal(t, int64(200_000), payer.TotalSpending)
	assert.Equal(t, int64(152_000), f.wallet(t, f.partner.ID).Balance)
	assert.Equal(t, domain.BookingStatusCompleted, f.booking(t, id).Status)
	assert.Equal(t,
		[]string{domain.TxTypeEscrowHold, domain.TxTypeBookingPayment, domain.TxTypeDisputeRefund},
		f.ledgerTypes(f.payer.ID))
}

func TestResolve_AlreadySettledBooking(t *testing.T) {
	f := newFixture(t)
	id := f.book(t)
	f.advance(t, id, domain.BookingStatusCompleted)
	d := f.fileDispute(t, f.payer.ID, id)
	assert.Equal(t, domain.BookingStatusCompleted, d.PreviousStatus)
	rows := len(f.mem.LedgerRows())

	_, err := f.disputes.Resolve(f.ctx, f.admin.ID, d.ID, ResolveDisputeInput{Resolution: domain.ResolutionRefund})
	assertKind(t, err, domain.KindInvalidTransition)

	_, err = f.disputes.Resolve(f.ctx, f.admin.ID, d.ID, ResolveDisputeInput{Resolution: domain.ResolutionRelease})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, f.booking(t, id).Status)
	assert.Len(t, f.mem.LedgerRows(), rows)
	assert.Equal(t, int64(228_000), f.wallet(t, f.partner.ID).Balance)
}

func TestResolve_Twice(t *testing.T) {
	f := newFixture(t)
	id := f.book(t)
	f.advance(t, id, domain.BookingStatusAccepted)
	d := f.fileDispute(t, f.payer.ID, id)

	_, err := f.disputes.Resolve(f.ctx, f.admin.ID, d.ID, ResolveDisputeInput{Resolution: "split"})
	assertKind(t, err, domain.KindValidation)

	_, err = f.disputes.Resolve(f.ctx, f.admin.ID, d.ID, ResolveDisputeInput{Resolution: domain.ResolutionRefund})
	require.NoError(t, err)
	_, err = f.disputes.Resolve(f.ctx, f.admin.ID, d.ID, ResolveDisputeInput{Resolution: domain.ResolutionRelease})
	assertKind(t, err, domain.KindConflict)

	_, err = f.disputes.Resolve(f.ctx, f.admin.ID, 999, ResolveDisputeInput{Resolution: domain.ResolutionRefund})
	assertKind(t, err, domain.KindNotFound)
}

func TestMarkInvestigating(t *testing.T) {
	f := newFixture(t)
	id := f.book(t)
	f.advance(t, id, domain.BookingStatusAccepted)
	d := f.fileDispute(t, f.payer.ID, id)

	got, err := f.disputes.MarkInvestigating(f.ctx, f.admin.ID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStatusInvestigating, got.Status)

	_, err = f.disputes.MarkInvestigating(f.ctx, f.admin.ID, d.ID)
	assertKind(t, err, domain.KindInvalidTransition)

	list, err := f.disputes.List(f.ctx, domain.DisputeStatusInvestigating, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, d.ID, list[0].ID)

	_, err = f.disputes.List(f.ctx, "closed", 10, 0)
	assertKind(t, err, domain.KindValidation)

	// An investigated dispute can still be resolved.
	_, err = f.disputes.Resolve(f.ctx, f.admin.ID, d.ID, ResolveDisputeInput{Resolution: domain.ResolutionRelease})
	require.NoError(t, err)
}
