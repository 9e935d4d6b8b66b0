// Package memstore is an in-process repository.Store. A transaction works on a
// copy of the whole state and swaps it in on commit, so every transaction is
// serializable and a failed one leaves nothing behind. State is lost on restart.
package memstore

import (
	"context"
	"sync"
	"time"

	"meetly/internal/models"
	"meetly/internal/repository"
)

type state struct {
	nextID uint

	users         map[uint]models.User
	services      map[uint]models.Service
	bookings      map[uint]models.Booking
	promos        map[uint]models.PromoCode
	promoUsages   []models.PromoCodeUsage
	ledger        []models.Transaction
	disputes      map[uint]models.Dispute
	referralCodes map[uint]models.ReferralCode // by user id
	rewards       map[uint]models.ReferralReward
	jobs          map[uint]models.SettlementJob
	idempotency   []models.IdempotencyKey
	notifications map[uint]models.Notification
	reports       []models.Report
	auditLogs     []models.AuditLog
	otps          map[uint]models.OTPCode
	settings      map[string]models.SystemSetting
}

func newState() *state {
	return &state{
		users:         map[uint]models.User{},
		services:      map[uint]models.Service{},
		bookings:      map[uint]models.Booking{},
		promos:        map[uint]models.PromoCode{},
		disputes:      map[uint]models.Dispute{},
		referralCodes: map[uint]models.ReferralCode{},
		rewards:       map[uint]models.ReferralReward{},
		jobs:          map[uint]models.SettlementJob{},
		notifications: map[uint]models.Notification{},
		otps:          map[uint]models.OTPCode{},
		settings:      map[string]models.SystemSetting{},
	}
}

func (s *state) id() uint {
	s.nextID++
	return s.nextID
}

func (s *state) clone() *state {
	c := &state{
		nextID:        s.nextID,
		users:         cloneMap(s.users),
		services:      cloneMap(s.services),
		bookings:      cloneMap(s.bookings),
		promos:        cloneMap(s.promos),
		promoUsages:   append([]models.PromoCodeUsage(nil), s.promoUsages...),
		ledger:        append([]models.Transaction(nil), s.ledger...),
		disputes:      cloneMap(s.disputes),
		referralCodes: cloneMap(s.referralCodes),
		rewards:       cloneMap(s.rewards),
		jobs:          cloneMap(s.jobs),
		idempotency:   append([]models.IdempotencyKey(nil), s.idempotency...),
		notifications: cloneMap(s.notifications),
		reports:       append([]models.Report(nil), s.reports...),
		auditLogs:     append([]models.AuditLog(nil), s.auditLogs...),
		otps:          cloneMap(s.otps),
		settings:      cloneMap(s.settings),
	}
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store implements repository.Store in memory.
type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

var _ repository.Store = (*Store)(nil)

// view binds repositories to either the committed state (taking the store lock
// per call) or a transaction draft (already under the lock).
type view struct {
	lock func() func()
	st   func() *state
}

func noLock() func() { return func() {} }

func (s *Store) committed() *view {
	return &view{
		lock: func() func() {
			s.mu.Lock()
			return s.mu.Unlock
		},
		st: func() *state { return s.st },
	}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	draft := s.st.clone()
	v := &view{lock: noLock, st: func() *state { return draft }}
	if err := fn(v); err != nil {
		return err
	}
	s.st = draft
	return nil
}

func (s *Store) Users() repository.UserRepository                 { return s.committed().Users() }
func (s *Store) Wallets() repository.WalletRepository             { return s.committed().Wallets() }
func (s *Store) Services() repository.ServiceRepository           { return s.committed().Services() }
func (s *Store) Bookings() repository.BookingRepository           { return s.committed().Bookings() }
func (s *Store) Promos() repository.PromoRepository               { return s.committed().Promos() }
func (s *Store) Ledger() repository.LedgerRepository              { return s.committed().Ledger() }
func (s *Store) Disputes() repository.DisputeRepository           { return s.committed().Disputes() }
func (s *Store) Referrals() repository.ReferralRepository         { return s.committed().Referrals() }
func (s *Store) Settlements() repository.SettlementRepository     { return s.committed().Settlements() }
func (s *Store) IdempotencyKeys() repository.IdempotencyRepository { return s.committed().IdempotencyKeys() }
func (s *Store) Notifications() repository.NotificationRepository { return s.committed().Notifications() }
func (s *Store) Reports() repository.ReportRepository             { return s.committed().Reports() }
func (s *Store) AuditLogs() repository.AuditLogRepository         { return s.committed().AuditLogs() }
func (s *Store) OTPs() repository.OTPRepository                   { return s.committed().OTPs() }
func (s *Store) Settings() repository.SettingRepository           { return s.committed().Settings() }

func (v *view) Users() repository.UserRepository                 { return userRepo{v} }
func (v *view) Wallets() repository.WalletRepository             { return walletRepo{v} }
func (v *view) Services() repository.ServiceRepository           { return serviceRepo{v} }
func (v *view) Bookings() repository.BookingRepository           { return bookingRepo{v} }
func (v *view) Promos() repository.PromoRepository               { return promoRepo{v} }
func (v *view) Ledger() repository.LedgerRepository              { return ledgerRepo{v} }
func (v *view) Disputes() repository.DisputeRepository           { return disputeRepo{v} }
func (v *view) Referrals() repository.ReferralRepository         { return referralRepo{v} }
func (v *view) Settlements() repository.SettlementRepository     { return settlementRepo{v} }
func (v *view) IdempotencyKeys() repository.IdempotencyRepository { return idempotencyRepo{v} }
func (v *view) Notifications() repository.NotificationRepository { return notificationRepo{v} }
func (v *view) Reports() repository.ReportRepository             { return reportRepo{v} }
func (v *view) AuditLogs() repository.AuditLogRepository         { return auditLogRepo{v} }
func (v *view) OTPs() repository.OTPRepository                   { return otpRepo{v} }
func (v *view) Settings() repository.SettingRepository           { return settingRepo{v} }

// LedgerRows returns a snapshot of every ledger row, oldest first.
func (s *Store) LedgerRows() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Transaction(nil), s.st.ledger...)
}

// AuditTrail returns a snapshot of the audit log, oldest first.
func (s *Store) AuditTrail() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.st.auditLogs...)
}

// BookingCount is a test helper reporting how many bookings exist.
func (s *Store) BookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.bookings)
}

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}
