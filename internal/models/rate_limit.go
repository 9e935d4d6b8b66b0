package models

import "time"

type RateLimitBucket struct {
	Identifier string    `gorm:"primaryKey;size:100" json:"identifier"`
	Endpoint   string    `gorm:"primaryKey;size:30" json:"endpoint"`
	Tokens     int       `gorm:"not null" json:"tokens"`
	LastRefill time.Time `gorm:"not null" json:"last_refill"`
	UpdatedAt  time.Time `gorm:"index" json:"updated_at"`
}

func (RateLimitBucket) TableName() string { return "rate_limit_buckets" }
