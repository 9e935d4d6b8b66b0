package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"meetly/config"
	"meetly/internal/domain"
	"meetly/internal/models"
	"meetly/internal/repository"
	"meetly/internal/repository/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentNotification struct {
	userID    uint
	notifType string
	data      map[string]interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(_ context.Context, userID uint, notifType, _, _ string, data map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{userID: userID, notifType: notifType, data: data})
	return nil
}

func (r *recordingNotifier) count(userID uint, notifType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sent {
		if s.userID == userID && s.notifType == notifType {
			n++
		}
	}
	return n
}

type fixture struct {
	ctx        context.Context
	store      repository.Store
	mem        *memstore.Store
	notes      *recordingNotifier
	settlement *SettlementService
	bookings   *BookingService
	disputes   *DisputeService

	payer   *models.User
	partner *models.User
	admin   *models.User
	service *models.Service
	seq     int
}

// newFixture seeds a payer holding 1,000,000, a gold partner offering a
// 300,000 session and one admin.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memstore.New()
	f := newFixtureOn(t, mem)
	f.mem = mem
	return f
}

func newFixtureOn(t *testing.T, store repository.Store) *fixture {
	t.Helper()
	notes := &recordingNotifier{}
	settlement := NewSettlementService(store, notes, config.SettlementConfig{MaxAttempts: 3, BatchSize: 10, JobsPerSecond: 1000})
	f := &fixture{
		ctx:        context.Background(),
		store:      store,
		notes:      notes,
		settlement: settlement,
		bookings:   NewBookingService(store, notes, settlement),
		disputes:   NewDisputeService(store, notes, settlement),
	}
	f.payer = f.newUser(t, domain.RoleUser, 1_000_000)
	f.partner = f.newUser(t, domain.RolePartner, 0)
	f.admin = f.newUser(t, domain.RoleAdmin, 0)
	f.service = f.newService(t, f.partner.ID, 300_000)
	return f
}

func (f *fixture) newUser(t *testing.T, role string, balance int64) *models.User {
	t.Helper()
	f.seq++
	u := &models.User{
		Email:       fmt.Sprintf("user%d@example.com", f.seq),
		DisplayName: fmt.Sprintf("User %d", f.seq),
		Role:        role,
		Wallet:      models.Wallet{Balance: balance},
	}
	if role == domain.RolePartner {
		u.PartnerTier = domain.PartnerTierGold
	}
	require.NoError(t, f.store.Users().Create(f.ctx, u))
	return u
}

func (f *fixture) newService(t *testing.T, providerID uint, price int64) *models.Service {
	t.Helper()
	svc := &models.Service{
		ProviderID:  providerID,
		Activity:    "City tour",
		Price:       price,
		Duration:    domain.DurationSession,
		IsAvailable: true,
	}
	require.NoError(t, f.store.Services().Create(f.ctx, svc))
	return svc
}

func (f *fixture) bookingInput() CreateBookingInput {
	return CreateBookingInput{
		QuoteInput: QuoteInput{ProviderID: f.partner.ID, ServiceID: f.service.ID},
		Date:       "2026-11-02",
		Time:       "18:30",
		Location:   "Westlands, Nairobi",
	}
}

func (f *fixture) book(t *testing.T) uint {
	t.Helper()
	res, _, err := f.bookings.Create(f.ctx, f.payer.ID, f.bookingInput())
	require.NoError(t, err)
	return res.BookingID
}

func (f *fixture) act(t *testing.T, userID, bookingID uint, action string) *TransitionResult {
	t.Helper()
	res, _, err := f.bookings.Transition(f.ctx, userID, TransitionInput{BookingID: bookingID, Action: action})
	require.NoError(t, err, action)
	return res
}

// advance drives a fresh booking to status through the partner's actions.
func (f *fixture) advance(t *testing.T, bookingID uint, status string) {
	t.Helper()
	steps := []struct {
		action string
		to     string
	}{
		{"accept", domain.BookingStatusAccepted},
		{"check_in", domain.BookingStatusArrived},
		{"start", domain.BookingStatusInProgress},
		{"finish", domain.BookingStatusCompletedPending},
	}
	for _, s := range steps {
		res := f.act(t, f.partner.ID, bookingID, s.action)
		require.Equal(t, s.to, res.Status)
		if s.to == status {
			return
		}
	}
	if status == domain.BookingStatusCompleted {
		f.act(t, f.payer.ID, bookingID, "confirm")
	}
}

func (f *fixture) wallet(t *testing.T, userID uint) models.Wallet {
	t.Helper()
	w, err := f.store.Wallets().Get(f.ctx, userID)
	require.NoError(t, err)
	return *w
}

func (f *fixture) booking(t *testing.T, id uint) models.Booking {
	t.Helper()
	b, err := f.store.Bookings().GetByID(f.ctx, id)
	require.NoError(t, err)
	return *b
}

func (f *fixture) ledgerTypes(userID uint) []string {
	var out []string
	for _, tx := range f.mem.LedgerRows() {
		if tx.UserID == userID {
			out = append(out, tx.Type)
		}
	}
	return out
}

func assertKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, domain.KindOf(err), err.Error())
}
