package repository

import (
	"context"

	"meetly/internal/models"

	"gorm.io/gorm"
)

type promoRepository struct {
	db *gorm.DB
}

func NewPromoRepository(db *gorm.DB) PromoRepository {
	return &promoRepository{db: db}
}

func (r *promoRepository) Create(ctx context.Context, p *models.PromoCode) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *promoRepository) GetByID(ctx context.Context, id uint) (*models.PromoCode, error) {
	var p models.PromoCode
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *promoRepository) GetForUpdate(ctx context.Context, id uint) (*models.PromoCode, error) {
	var p models.PromoCode
	if err := forUpdate(r.db.WithContext(ctx)).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *promoRepository) IncrementUsedCount(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("id = ?", id).
		UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error
}

func (r *promoRepository) CountUsageByUser(ctx context.Context, promoID, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.PromoCodeUsage{}).
		Where("promo_code_id = ? AND user_id = ?", promoID, userID).
		Count(&n).Error
	return n, err
}

func (r *promoRepository) CreateUsage(ctx context.Context, u *models.PromoCodeUsage) error {
	return translate(r.db.WithContext(ctx).Create(u).Error)
}
