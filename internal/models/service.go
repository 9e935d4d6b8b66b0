package models

import (
	"time"

	"gorm.io/gorm"
)

// Service is a partner's bookable offering. Maintained by the catalog, read here for pricing.
type Service struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ProviderID  uint           `gorm:"not null;index" json:"provider_id"`
	Activity    string         `gorm:"size:100;not null" json:"activity"`
	Price       int64          `gorm:"not null" json:"price"`
	Duration    string         `gorm:"size:20;not null" json:"duration"` // session | day
	IsAvailable bool           `gorm:"not null" json:"is_available"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Provider User `gorm:"foreignKey:ProviderID" json:"-"`
}

func (Service) TableName() string { return "services" }
