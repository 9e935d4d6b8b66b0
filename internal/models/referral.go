package models

import (
	"time"
)

// ReferralCode is a unique invite code belonging to a user.
type ReferralCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Code      string    `gorm:"uniqueIndex;size:20;not null" json:"code"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (ReferralCode) TableName() string { return "referral_codes" }

// ReferralReward is paid once, on the referred user's first completed booking.
// A user can only be referred once.
type ReferralReward struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ReferrerID     uint       `gorm:"not null;index" json:"referrer_id"`
	ReferredID     uint       `gorm:"uniqueIndex;not null" json:"referred_id"`
	Status         string     `gorm:"size:20;not null;index" json:"status"` // pending | completed
	ReferrerBonus  int64      `gorm:"not null;default:0" json:"referrer_bonus"`
	ReferredBonus  int64      `gorm:"not null;default:0" json:"referred_bonus"`
	TriggerBooking *uint      `json:"trigger_booking_id"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (ReferralReward) TableName() string { return "referral_rewards" }
