package models

import "time"

type OTPCode struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index:idx_otp_user_phone" json:"user_id"`
	Phone      string     `gorm:"size:20;not null;index:idx_otp_user_phone" json:"phone"`
	CodeHash   string     `gorm:"size:255;not null" json:"-"`
	Attempts   int        `gorm:"not null;default:0" json:"attempts"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (OTPCode) TableName() string { return "otp_codes" }
