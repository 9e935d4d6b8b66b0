package models

import (
	"time"

	"gorm.io/datatypes"
)

// IdempotencyKey stores the response of a mutating call so a retry with the same key replays it.
type IdempotencyKey struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;uniqueIndex:idx_idem_user_scope_key" json:"user_id"`
	Scope      string         `gorm:"size:40;not null;uniqueIndex:idx_idem_user_scope_key" json:"scope"`
	Key        string         `gorm:"size:64;not null;uniqueIndex:idx_idem_user_scope_key" json:"key"`
	ResourceID uint           `json:"resource_id"`
	Response   datatypes.JSON `json:"response"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (IdempotencyKey) TableName() string { return "idempotency_keys" }
