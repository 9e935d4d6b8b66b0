package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PromoCode struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Code              string          `gorm:"uniqueIndex;size:40;not null" json:"code"`
	DiscountType      string          `gorm:"size:20;not null" json:"discount_type"` // percentage | fixed
	DiscountValue     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"discount_value"`
	MinOrderAmount    int64           `gorm:"not null;default:0" json:"min_order_amount"`
	MaxDiscountAmount int64           `gorm:"not null;default:0" json:"max_discount_amount"` // percentage cap, 0 = none
	UsageLimit        int             `gorm:"not null;default:0" json:"usage_limit"`         // 0 = unlimited
	UsedCount         int             `gorm:"not null;default:0" json:"used_count"`
	UserLimit         int             `gorm:"not null;default:0" json:"user_limit"` // per user, 0 = unlimited
	ValidFrom         *time.Time      `json:"valid_from"`
	ValidUntil        *time.Time      `json:"valid_until"`
	FirstBookingOnly  bool            `gorm:"not null;default:false" json:"first_booking_only"`
	IsActive          bool            `gorm:"not null" json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (PromoCode) TableName() string { return "promo_codes" }

// PromoCodeUsage is append-only; per-user limits are counted from these rows.
type PromoCodeUsage struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PromoCodeID    uint      `gorm:"not null;index:idx_promo_usage_user" json:"promo_code_id"`
	UserID         uint      `gorm:"not null;index:idx_promo_usage_user" json:"user_id"`
	BookingID      uint      `gorm:"not null;uniqueIndex" json:"booking_id"`
	DiscountAmount int64     `gorm:"not null" json:"discount_amount"`
	CreatedAt      time.Time `json:"created_at"`
}

func (PromoCodeUsage) TableName() string { return "promo_code_usages" }
