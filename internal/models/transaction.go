package models

import (
	"time"
)

// Transaction is an append-only ledger entry. Amount is a positive magnitude; Type carries direction.
type Transaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Type        string    `gorm:"size:30;not null;index" json:"type"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Status      string    `gorm:"size:20;not null" json:"status"`
	RelatedID   uint      `gorm:"index" json:"related_id"`
	RelatedType string    `gorm:"size:30" json:"related_type"` // booking | referral_reward | dispute
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Transaction) TableName() string { return "transactions" }
