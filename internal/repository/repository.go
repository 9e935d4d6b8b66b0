package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"meetly/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetForUpdate reads the user with the row locked until the transaction ends.
	GetForUpdate(ctx context.Context, id uint) (*models.User, error)
	ListIDsByRole(ctx context.Context, role string) ([]uint, error)
	UpdateRating(ctx context.Context, id uint, average float64, count int) error
	MarkPhoneVerified(ctx context.Context, id uint, phone string, at time.Time) error
	SetFCMToken(ctx context.Context, id uint, token string) error
}

// WalletRepository reads and writes the wallet columns of a users row.
type WalletRepository interface {
	Get(ctx context.Context, userID uint) (*models.Wallet, error)
	// GetForUpdate locks the users row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, userID uint) (*models.Wallet, error)
	Save(ctx context.Context, userID uint, w *models.Wallet) error
}

type ServiceRepository interface {
	Create(ctx context.Context, s *models.Service) error
	GetByID(ctx context.Context, id uint) (*models.Service, error)
}

type BookingRepository interface {
	Create(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id uint) (*models.Booking, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Booking, error)
	Save(ctx context.Context, b *models.Booking) error
	// CountActiveByBooker counts the user's bookings that were not cancelled or rejected.
	CountActiveByBooker(ctx context.Context, bookerID uint) (int64, error)
	CountCompletedByBooker(ctx context.Context, bookerID uint) (int64, error)
	CountCompletedByPartner(ctx context.Context, partnerID uint) (int64, error)
}

type PromoRepository interface {
	Create(ctx context.Context, p *models.PromoCode) error
	GetByID(ctx context.Context, id uint) (*models.PromoCode, error)
	GetForUpdate(ctx context.Context, id uint) (*models.PromoCode, error)
	IncrementUsedCount(ctx context.Context, id uint) error
	CountUsageByUser(ctx context.Context, promoID, userID uint) (int64, error)
	CreateUsage(ctx context.Context, u *models.PromoCodeUsage) error
}

type LedgerRepository interface {
	Append(ctx context.Context, t *models.Transaction) error
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error)
}

type DisputeRepository interface {
	Create(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id uint) (*models.Dispute, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Dispute, error)
	GetByBookingID(ctx context.Context, bookingID uint) (*models.Dispute, error)
	Save(ctx context.Context, d *models.Dispute) error
	List(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error)
}

type ReferralRepository interface {
	GetOrCreateCode(ctx context.Context, userID uint) (*models.ReferralCode, error)
	GetByCode(ctx context.Context, code string) (*models.ReferralCode, error)
	CreateReward(ctx context.Context, r *models.ReferralReward) error
	GetRewardByReferred(ctx context.Context, referredID uint) (*models.ReferralReward, error)
	GetRewardByReferredForUpdate(ctx context.Context, referredID uint) (*models.ReferralReward, error)
	SaveReward(ctx context.Context, r *models.ReferralReward) error
}

type SettlementRepository interface {
	Create(ctx context.Context, j *models.SettlementJob) error
	GetByID(ctx context.Context, id uint) (*models.SettlementJob, error)
	GetForUpdate(ctx context.Context, id uint) (*models.SettlementJob, error)
	Save(ctx context.Context, j *models.SettlementJob) error
	ListPending(ctx context.Context, limit int) ([]models.SettlementJob, error)
}

type IdempotencyRepository interface {
	Get(ctx context.Context, userID uint, scope, key string) (*models.IdempotencyKey, error)
	Create(ctx context.Context, k *models.IdempotencyKey) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUserID(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uint, at time.Time) error
}

type ReportRepository interface {
	Create(ctx context.Context, r *models.Report) error
}

type AuditLogRepository interface {
	Create(ctx context.Context, l *models.AuditLog) error
}

type OTPRepository interface {
	Create(ctx context.Context, o *models.OTPCode) error
	// GetActiveForUpdate returns the newest unconsumed code for the user and phone.
	GetActiveForUpdate(ctx context.Context, userID uint, phone string) (*models.OTPCode, error)
	Save(ctx context.Context, o *models.OTPCode) error
	InvalidateAll(ctx context.Context, userID uint, phone string, at time.Time) error
}

type SettingRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, updatedBy *uint) error
	GetAll(ctx context.Context) ([]models.SystemSetting, error)
	SeedDefaults(ctx context.Context, defaults map[string]string) error
}

// Repos gives access to one repository per aggregate. Inside Store.Transaction
// every repository shares the transaction.
type Repos interface {
	Users() UserRepository
	Wallets() WalletRepository
	Services() ServiceRepository
	Bookings() BookingRepository
	Promos() PromoRepository
	Ledger() LedgerRepository
	Disputes() DisputeRepository
	Referrals() ReferralRepository
	Settlements() SettlementRepository
	IdempotencyKeys() IdempotencyRepository
	Notifications() NotificationRepository
	Reports() ReportRepository
	AuditLogs() AuditLogRepository
	OTPs() OTPRepository
	Settings() SettingRepository
}

type Store interface {
	Repos
	// Transaction runs fn atomically. Returning an error rolls back every write made through tx.
	Transaction(ctx context.Context, fn func(tx Repos) error) error
}

// GenerateReferralCode returns an 8-character uppercase hex referral code.
func GenerateReferralCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
