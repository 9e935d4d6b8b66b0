package models

import (
	"time"
)

type Booking struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	BookerID      uint   `gorm:"not null;index" json:"booker_id"`
	PartnerID     uint   `gorm:"not null;index" json:"partner_id"`
	ServiceID     uint   `gorm:"not null;index" json:"service_id"`
	Activity      string `gorm:"size:100;not null" json:"activity"`
	DurationHours int    `gorm:"not null" json:"duration_hours"`
	Date          string `gorm:"size:10;not null" json:"date"`
	Time          string `gorm:"size:8;not null" json:"time"`
	Location      string `gorm:"size:255;not null" json:"location"`
	Message       string `gorm:"type:text" json:"message"`
	PromoCodeID   *uint  `gorm:"index" json:"promo_code_id"`
	Status        string `gorm:"size:20;not null;index" json:"status"`

	OriginalAmount int64 `gorm:"not null" json:"original_amount"`
	PromoDiscount  int64 `gorm:"not null;default:0" json:"promo_discount"`
	TotalAmount    int64 `gorm:"not null" json:"total_amount"`
	PlatformFee    int64 `gorm:"not null" json:"platform_fee"`
	PartnerEarning int64 `gorm:"not null" json:"partner_earning"`
	FeeRateBps     int   `gorm:"not null" json:"fee_rate_bps"`

	AcceptedAt        *time.Time `json:"accepted_at"`
	BookerCheckInAt   *time.Time `json:"booker_check_in_at"`
	BookerCheckInLat  *float64   `json:"booker_check_in_lat"`
	BookerCheckInLng  *float64   `json:"booker_check_in_lng"`
	PartnerCheckInAt  *time.Time `json:"partner_check_in_at"`
	PartnerCheckInLat *float64   `json:"partner_check_in_lat"`
	PartnerCheckInLng *float64   `json:"partner_check_in_lng"`
	StartedAt         *time.Time `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at"`
	CompletedAt       *time.Time `json:"completed_at"`
	CancelledAt       *time.Time `json:"cancelled_at"`
	EscrowReleasedAt  *time.Time `json:"escrow_released_at"`

	Rating        *int   `json:"rating"`
	ReviewComment string `gorm:"type:text" json:"review_comment"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Booker  User `gorm:"foreignKey:BookerID" json:"-"`
	Partner User `gorm:"foreignKey:PartnerID" json:"-"`
}

func (Booking) TableName() string { return "bookings" }

// CounterpartOf returns the other party of the booking.
func (b *Booking) CounterpartOf(userID uint) uint {
	if userID == b.BookerID {
		return b.PartnerID
	}
	return b.BookerID
}

func (b *Booking) IsParty(userID uint) bool {
	return userID == b.BookerID || userID == b.PartnerID
}
