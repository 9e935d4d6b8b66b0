package models

import (
	"time"

	"gorm.io/datatypes"
)

// Dispute is one-to-one with a booking (unique date_order_id).
type Dispute struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	DateOrderID      uint           `gorm:"uniqueIndex;not null" json:"date_order_id"`
	FiledBy          uint           `gorm:"not null;index" json:"filed_by"`
	Reason           string         `gorm:"size:40;not null" json:"reason"`
	Description      string         `gorm:"type:text" json:"description"`
	EvidenceURLs     datatypes.JSON `json:"evidence_urls"`
	Status           string         `gorm:"size:20;not null;index" json:"status"`
	PreviousStatus   string         `gorm:"size:20;not null" json:"previous_status"`
	Resolution       string         `gorm:"size:20" json:"resolution"`
	ResolutionAmount int64          `gorm:"not null;default:0" json:"resolution_amount"`
	ResolutionNote   string         `gorm:"type:text" json:"resolution_note"`
	ResolvedBy       *uint          `json:"resolved_by"`
	ResolvedAt       *time.Time     `json:"resolved_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	Booking Booking `gorm:"foreignKey:DateOrderID" json:"-"`
}

func (Dispute) TableName() string { return "disputes" }
