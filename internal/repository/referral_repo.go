package repository

import (
	"context"
	"errors"
	"fmt"

	"meetly/internal/models"

	"gorm.io/gorm"
)

type referralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &referralRepository{db: db}
}

// GetOrCreateCode returns the existing referral code for a user, or creates a new unique one.
func (r *referralRepository) GetOrCreateCode(ctx context.Context, userID uint) (*models.ReferralCode, error) {
	var rc models.ReferralCode
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rc).Error
	if err == nil {
		return &rc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	for i := 0; i < 10; i++ {
		code, err := GenerateReferralCode()
		if err != nil {
			return nil, err
		}
		rc = models.ReferralCode{UserID: userID, Code: code, IsActive: true}
		if err := r.db.WithContext(ctx).Create(&rc).Error; err == nil {
			return &rc, nil
		}
		// collision on code, retry
	}
	return nil, fmt.Errorf("failed to generate a unique referral code after retries")
}

func (r *referralRepository) GetByCode(ctx context.Context, code string) (*models.ReferralCode, error) {
	var rc models.ReferralCode
	if err := r.db.WithContext(ctx).Where("code = ? AND is_active = ?", code, true).First(&rc).Error; err != nil {
		return nil, translate(err)
	}
	return &rc, nil
}

func (r *referralRepository) CreateReward(ctx context.Context, rw *models.ReferralReward) error {
	return translate(r.db.WithContext(ctx).Create(rw).Error)
}

func (r *referralRepository) GetRewardByReferred(ctx context.Context, referredID uint) (*models.ReferralReward, error) {
	var rw models.ReferralReward
	if err := r.db.WithContext(ctx).Where("referred_id = ?", referredID).First(&rw).Error; err != nil {
		return nil, translate(err)
	}
	return &rw, nil
}

func (r *referralRepository) GetRewardByReferredForUpdate(ctx context.Context, referredID uint) (*models.ReferralReward, error) {
	var rw models.ReferralReward
	if err := forUpdate(r.db.WithContext(ctx)).Where("referred_id = ?", referredID).First(&rw).Error; err != nil {
		return nil, translate(err)
	}
	return &rw, nil
}

func (r *referralRepository) SaveReward(ctx context.Context, rw *models.ReferralReward) error {
	return r.db.WithContext(ctx).Save(rw).Error
}
