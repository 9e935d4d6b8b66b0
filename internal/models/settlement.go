package models

import "time"

// SettlementJob tracks the post-payment enrichment steps of a settled booking.
// Each step flag flips once, inside the same transaction as the step's writes.
type SettlementJob struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	BookingID            uint       `gorm:"not null;index" json:"booking_id"`
	PayerID              uint       `gorm:"not null" json:"payer_id"`
	PartnerID            uint       `gorm:"not null" json:"partner_id"`
	SpendAmount          int64      `gorm:"not null" json:"spend_amount"`
	PayerFirstCompletion bool       `gorm:"not null;default:false" json:"payer_first_completion"`
	TierApplied          bool       `gorm:"not null;default:false" json:"tier_applied"`
	ProChecked           bool       `gorm:"not null;default:false" json:"pro_checked"`
	ReferralChecked      bool       `gorm:"not null;default:false" json:"referral_checked"`
	Status               string     `gorm:"size:20;not null;index" json:"status"`
	Attempts             int        `gorm:"not null;default:0" json:"attempts"`
	LastError            string     `gorm:"type:text" json:"last_error"`
	CompletedAt          *time.Time `json:"completed_at"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (SettlementJob) TableName() string { return "settlement_jobs" }

func (j *SettlementJob) StepsDone() bool {
	return j.TierApplied && j.ProChecked && j.ReferralChecked
}
