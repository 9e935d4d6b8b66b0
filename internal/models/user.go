package models

import (
	"time"

	"meetly/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Email           string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	DisplayName     string         `gorm:"size:100" json:"display_name"`
	Role            string         `gorm:"size:20;not null;index" json:"role"` // USER | PARTNER | ADMIN
	PartnerTier     string         `gorm:"size:20;not null;default:'free'" json:"partner_tier"`
	RatingAverage   float64        `gorm:"not null;default:0" json:"rating_average"`
	RatingCount     int            `gorm:"not null;default:0" json:"rating_count"`
	Phone           string         `gorm:"size:20" json:"phone"`
	PhoneVerifiedAt *time.Time     `json:"phone_verified_at"`
	FCMToken        string         `gorm:"size:512" json:"-"`
	Wallet          Wallet         `gorm:"embedded" json:"wallet"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) IsPartner() bool { return u.Role == domain.RolePartner }
func (u *User) IsAdmin() bool   { return u.Role == domain.RoleAdmin }

func (User) TableName() string { return "users" }
