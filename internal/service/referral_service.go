package service

import (
	"context"
	"errors"
	"strings"

	"meetly/internal/domain"
	"meetly/internal/models"
	"meetly/internal/repository"
)

// ReferralService hands out referral codes and records who referred whom.
// The bonus itself is paid by SettlementService on the referred user's first
// completed booking.
type ReferralService struct {
	store repository.Store
}

func NewReferralService(store repository.Store) *ReferralService {
	return &ReferralService{store: store}
}

func (s *ReferralService) GetMyCode(ctx context.Context, userID uint) (*models.ReferralCode, error) {
	rc, err := s.store.Referrals().GetOrCreateCode(ctx, userID)
	if err != nil {
		return nil, domain.Internal("could not get referral code", err)
	}
	return rc, nil
}

// Redeem links the caller to the owner of code with a pending reward.
func (s *ReferralService) Redeem(ctx context.Context, userID uint, code string) (*models.ReferralReward, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.Errorf(domain.KindValidation, "code is required")
	}
	var reward *models.ReferralReward
	err := s.store.Transaction(ctx, func(tx repository.Repos) error {
		rc, err := tx.Referrals().GetByCode(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Errorf(domain.KindNotFound, "referral code not found")
		}
		if err != nil {
			return domain.Internal("could not load referral code", err)
		}
		if !rc.IsActive {
			return domain.Errorf(domain.KindValidation, "referral code is no longer active")
		}
		if rc.UserID == userID {
			return domain.Errorf(domain.KindValidation, "you cannot redeem your own referral code")
		}
		_, err = tx.Referrals().GetRewardByReferred(ctx, userID)
		if err == nil {
			return domain.Errorf(domain.KindConflict, "you have already redeemed a referral code")
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return domain.Internal("could not check referrals", err)
		}
		completed, err := tx.Bookings().CountCompletedByBooker(ctx, userID)
		if err != nil {
			return domain.Internal("could not count bookings", err)
		}
		if completed > 0 {
			return domain.Errorf(domain.KindValidation, "referral codes can only be redeemed before your first completed booking")
		}
		reward = &models.ReferralReward{
			ReferrerID: rc.UserID,
			ReferredID: userID,
			Status:     domain.RewardStatusPending,
		}
		if err := tx.Referrals().CreateReward(ctx, reward); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return domain.Errorf(domain.KindConflict, "you have already redeemed a referral code")
			}
			return domain.Internal("could not create referral", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}
