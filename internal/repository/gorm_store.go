package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a Store backed by gorm. The DB must be opened with TranslateError
// so unique violations surface as ErrDuplicate.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) Users() UserRepository                 { return NewUserRepository(s.db) }
func (s *gormStore) Wallets() WalletRepository             { return NewWalletRepository(s.db) }
func (s *gormStore) Services() ServiceRepository           { return NewServiceRepository(s.db) }
func (s *gormStore) Bookings() BookingRepository           { return NewBookingRepository(s.db) }
func (s *gormStore) Promos() PromoRepository               { return NewPromoRepository(s.db) }
func (s *gormStore) Ledger() LedgerRepository              { return NewLedgerRepository(s.db) }
func (s *gormStore) Disputes() DisputeRepository           { return NewDisputeRepository(s.db) }
func (s *gormStore) Referrals() ReferralRepository         { return NewReferralRepository(s.db) }
func (s *gormStore) Settlements() SettlementRepository     { return NewSettlementRepository(s.db) }
func (s *gormStore) IdempotencyKeys() IdempotencyRepository { return NewIdempotencyRepository(s.db) }
func (s *gormStore) Notifications() NotificationRepository { return NewNotificationRepository(s.db) }
func (s *gormStore) Reports() ReportRepository             { return NewReportRepository(s.db) }
func (s *gormStore) AuditLogs() AuditLogRepository         { return NewAuditLogRepository(s.db) }
func (s *gormStore) OTPs() OTPRepository                   { return NewOTPRepository(s.db) }
func (s *gormStore) Settings() SettingRepository           { return NewSettingRepository(s.db) }

// translate maps gorm errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
