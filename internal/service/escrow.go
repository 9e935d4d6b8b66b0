package service

import (
	"context"
	"errors"
	"fmt"

	"meetly/internal/domain"
	"meetly/internal/models"
	"meetly/internal/repository"
)

// The helpers in this file must run inside Store.Transaction. Each locks the
// wallets it touches and appends one ledger row per wallet mutation.

func appendLedger(ctx context.Context, tx repository.Repos, userID uint, txType string, amount int64, bookingID uint, relatedType, desc string) error {
	err := tx.Ledger().Append(ctx, &models.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Status:      domain.TxStatusCompleted,
		RelatedID:   bookingID,
		RelatedType: relatedType,
		Description: desc,
	})
	if err != nil {
		return domain.Internal("could not record transaction", err)
	}
	return nil
}

func lockWallet(ctx context.Context, tx repository.Repos, userID uint) (*models.Wallet, error) {
	w, err := tx.Wallets().GetForUpdate(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Errorf(domain.KindNotFound, "user %d not found", userID)
	}
	if err != nil {
		return nil, domain.Internal("could not load wallet", err)
	}
	return w, nil
}

func saveWallet(ctx context.Context, tx repository.Repos, userID uint, w *models.Wallet) error {
	if err := tx.Wallets().Save(ctx, userID, w); err != nil {
		return domain.Internal("could not update wallet", err)
	}
	return nil
}

// openEscrow moves amount from the payer's balance into escrow.
func openEscrow(ctx context.Context, tx repository.Repos, w *models.Wallet, payerID, bookingID uint, amount int64) error {
	if amount == 0 {
		return nil
	}
	if err := w.Hold(amount); err != nil {
		if errors.Is(err, models.ErrInsufficientFunds) {
			return domain.Errorf(domain.KindInsufficientFunds, "insufficient balance: have %d, need %d", w.Balance, amount)
		}
		return domain.Errorf(domain.KindValidation, "%v", err)
	}
	if err := saveWallet(ctx, tx, payerID, w); err != nil {
		return err
	}
	return appendLedger(ctx, tx, payerID, domain.TxTypeEscrowHold, amount, bookingID, "booking", "escrow hold")
}

// refundEscrow returns amount from the payer's escrow to their balance.
func refundEscrow(ctx context.Context, tx repository.Repos, payerID, bookingID uint, amount int64, txType string) error {
	if amount == 0 {
		return nil
	}
	w, err := lockWallet(ctx, tx, payerID)
	if err != nil {
		return err
	}
	if err := w.Refund(amount); err != nil {
		return domain.Internal("escrow does not cover refund", err)
	}
	if err := saveWallet(ctx, tx, payerID, w); err != nil {
		return err
	}
	return appendLedger(ctx, tx, payerID, txType, amount, bookingID, "booking", "escrow refund")
}

// releaseEscrow pays earning out of amount held in the payer's escrow to the
// partner. The difference is the platform fee and is credited to nobody.
// Wallets are locked in id order.
func releaseEscrow(ctx context.Context, tx repository.Repos, payerID, partnerID, bookingID uint, amount, earning int64) error {
	if earning > amount || earning < 0 {
		return domain.Internal("invalid settlement", fmt.Errorf("earning %d out of range for amount %d", earning, amount))
	}
	if amount == 0 {
		return nil
	}
	first, second := payerID, partnerID
	if second < first {
		first, second = second, first
	}
	wallets := map[uint]*models.Wallet{}
	for _, id := range []uint{first, second} {
		w, err := lockWallet(ctx, tx, id)
		if err != nil {
			return err
		}
		wallets[id] = w
	}

	payer, partner := wallets[payerID], wallets[partnerID]
	if err := payer.ReleaseEscrow(amount); err != nil {
		return domain.Internal("escrow does not cover settlement", err)
	}
	partner.Credit(earning)
	if err := saveWallet(ctx, tx, payerID, payer); err != nil {
		return err
	}
	if err := saveWallet(ctx, tx, partnerID, partner); err != nil {
		return err
	}
	if err := appendLedger(ctx, tx, payerID, domain.TxTypeBookingPayment, amount, bookingID, "booking", "booking payment"); err != nil {
		return err
	}
	if earning == 0 {
		return nil
	}
	return appendLedger(ctx, tx, partnerID, domain.TxTypeBookingEarning, earning, bookingID, "booking", "booking earning")
}
