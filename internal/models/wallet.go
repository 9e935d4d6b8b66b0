package models

import (
	"errors"

	"meetly/internal/domain"
)

var (
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrEscrowShortfall   = errors.New("escrow does not cover amount")
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

// Wallet lives on the users row. Balance and Escrow never go negative.
type Wallet struct {
	Balance       int64  `gorm:"column:balance;not null;default:0;check:chk_users_balance,balance >= 0" json:"balance"`
	Escrow        int64  `gorm:"column:escrow;not null;default:0;check:chk_users_escrow,escrow >= 0" json:"escrow"`
	TotalSpending int64  `gorm:"column:total_spending;not null;default:0" json:"total_spending"`
	VIPTier       string `gorm:"column:vip_tier;size:10;not null;default:'free'" json:"vip_tier"`
	IsPro         bool   `gorm:"column:is_pro;not null;default:false" json:"is_pro"`
}

// Hold moves amount from balance into escrow.
func (w *Wallet) Hold(amount int64) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if w.Balance < amount {
		return ErrInsufficientFunds
	}
	w.Balance -= amount
	w.Escrow += amount
	return nil
}

// Refund returns amount from escrow to balance.
func (w *Wallet) Refund(amount int64) error {
	if err := w.ReleaseEscrow(amount); err != nil {
		return err
	}
	w.Balance += amount
	return nil
}

// ReleaseEscrow removes amount from escrow without crediting balance.
func (w *Wallet) ReleaseEscrow(amount int64) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if w.Escrow < amount {
		return ErrEscrowShortfall
	}
	w.Escrow -= amount
	return nil
}

func (w *Wallet) Credit(amount int64) {
	w.Balance += amount
}

// TierForSpending maps lifetime spending to a payer tier.
func TierForSpending(total int64) string {
	switch {
	case total >= domain.SVIPSpendingThreshold:
		return domain.TierSVIP
	case total >= domain.VIPSpendingThreshold:
		return domain.TierVIP
	default:
		return domain.TierFree
	}
}

var tierRank = map[string]int{domain.TierFree: 0, domain.TierVIP: 1, domain.TierSVIP: 2}

// AddSpending records completed spend and upgrades the tier. Tiers never go down.
// It reports whether the tier changed.
func (w *Wallet) AddSpending(amount int64) bool {
	w.TotalSpending += amount
	next := TierForSpending(w.TotalSpending)
	if tierRank[next] > tierRank[w.VIPTier] {
		w.VIPTier = next
		return true
	}
	if w.VIPTier == "" {
		w.VIPTier = domain.TierFree
	}
	return false
}
