package repository

import (
	"context"
	"time"

	"meetly/internal/models"

	"gorm.io/gorm"
)

type otpRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) Create(ctx context.Context, o *models.OTPCode) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *otpRepository) GetActiveForUpdate(ctx context.Context, userID uint, phone string) (*models.OTPCode, error) {
	var o models.OTPCode
	err := forUpdate(r.db.WithContext(ctx)).
		Where("user_id = ? AND phone = ? AND consumed_at IS NULL", userID, phone).
		Order("id DESC").
		First(&o).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *otpRepository) Save(ctx context.Context, o *models.OTPCode) error {
	return r.db.WithContext(ctx).Save(o).Error
}

func (r *otpRepository) InvalidateAll(ctx context.Context, userID uint, phone string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.OTPCode{}).
		Where("user_id = ? AND phone = ? AND consumed_at IS NULL", userID, phone).
		Update("consumed_at", at).Error
}
