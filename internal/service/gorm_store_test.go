package service

import (
	"sync"
	"testing"

	"meetly/internal/database/dbtest"
	"meetly/internal/domain"
	"meetly/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSQLFixture runs the booking services against the gorm store on SQLite.
func newSQLFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, repository.NewStore(dbtest.Open(t)))
}

func (f *fixture) ledgerLen(t *testing.T, userID uint) int {
	t.Helper()
	rows, err := f.store.Ledger().ListByUser(f.ctx, userID, 100, 0)
	require.NoError(t, err)
	return len(rows)
}

func TestSQLStore_BookingLifecycle(t *testing.T) {
	f := newSQLFixture(t)
	in := f.bookingInput()
	in.IdempotencyKey = "sql-create-1"

	first, replay, err := f.bookings.Create(f.ctx, f.payer.ID, in)
	require.NoError(t, err)
	assert.False(t, replay)
	second, replay, err := f.bookings.Create(f.ctx, f.payer.ID, in)
	require.NoError(t, err)
	assert.True(t, replay)
	assert.Equal(t, first, second)

	payer := f.wallet(t, f.payer.ID)
	assert.Equal(t, int64(700_000), payer.Balance)
	assert.Equal(t, int64(300_000), payer.Escrow)

	f.advance(t, first.BookingID, domain.BookingStatusCompleted)
	rows := f.ledgerLen(t, f.payer.ID)

	res := f.act(t, f.payer.ID, first.BookingID, "confirm")
	assert.Equal(t, domain.BookingStatusCompleted, res.Status)
	assert.Equal(t, rows, f.ledgerLen(t, f.payer.ID))

	payer = f.wallet(t, f.payer.ID)
	assert.Zero(t, payer.Escrow)
	assert.Equal(t, int64(300_000), payer.TotalSpending)
	assert.Equal(t, int64(228_000), f.wallet(t, f.partner.ID).Balance)
}

func TestSQLStore_InsufficientFundsRollsBack(t *testing.T) {
	f := newSQLFixture(t)
	poor := f.newUser(t, domain.RoleUser, 100_000)

	_, _, err := f.bookings.Create(f.ctx, poor.ID, f.bookingInput())
	assertKind(t, err, domain.KindInsufficientFunds)
	assert.Equal(t, int64(100_000), f.wallet(t, poor.ID).Balance)
	assert.Zero(t, f.ledgerLen(t, poor.ID))
}

func TestSQLStore_RejectRefunds(t *testing.T) {
	f := newSQLFixture(t)
	id := f.book(t)

	res := f.act(t, f.partner.ID, id, "reject")
	assert.Equal(t, domain.BookingStatusRejected, res.Status)

	payer := f.wallet(t, f.payer.ID)
	assert.Equal(t, int64(1_000_000), payer.Balance)
	assert.Zero(t, payer.Escrow)

	_, _, err := f.bookings.Transition(f.ctx, f.payer.ID, TransitionInput{BookingID: id, Action: "cancel"})
	assertKind(t, err, domain.KindInvalidTransition)
}

func TestSQLStore_RatingsAccumulate(t *testing.T) {
	f := newSQLFixture(t)
	first, second := f.book(t), f.book(t)
	f.advance(t, first, domain.BookingStatusCompleted)
	f.advance(t, second, domain.BookingStatusCompleted)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, r := range []struct {
		id     uint
		rating int
	}{{first, 5}, {second, 2}} {
		wg.Add(1)
		go func(i int, id uint, rating int) {
			defer wg.Done()
			errs[i] = f.bookings.Rate(f.ctx, f.payer.ID, id, rating, "")
		}(i, r.id, r.rating)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	u, err := f.store.Users().GetByID(f.ctx, f.partner.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, u.RatingCount)
	assert.InDelta(t, 3.5, u.RatingAverage, 1e-9)
}

func TestSQLStore_OneDisputePerBooking(t *testing.T) {
	f := newSQLFixture(t)
	id := f.book(t)
	f.advance(t, id, domain.BookingStatusAccepted)
	f.fileDispute(t, f.payer.ID, id)
	assert.Equal(t, domain.BookingStatusDisputed, f.booking(t, id).Status)

	_, err := f.disputes.File(f.ctx, f.partner.ID, FileDisputeInput{DateOrderID: id, Reason: domain.DisputeReasonOther, Description: "again"})
	assertKind(t, err, domain.KindConflict)
}
