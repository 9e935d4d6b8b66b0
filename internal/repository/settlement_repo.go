package repository

import (
	"context"

	"meetly/internal/domain"
	"meetly/internal/models"

	"gorm.io/gorm"
)

type settlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) SettlementRepository {
	return &settlementRepository{db: db}
}

func (r *settlementRepository) Create(ctx context.Context, j *models.SettlementJob) error {
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *settlementRepository) GetByID(ctx context.Context, id uint) (*models.SettlementJob, error) {
	var j models.SettlementJob
	if err := r.db.WithContext(ctx).First(&j, id).Error; err != nil {
		return nil, translate(err)
	}
	return &j, nil
}

func (r *settlementRepository) GetForUpdate(ctx context.Context, id uint) (*models.SettlementJob, error) {
	var j models.SettlementJob
	if err := forUpdate(r.db.WithContext(ctx)).First(&j, id).Error; err != nil {
		return nil, translate(err)
	}
	return &j, nil
}

func (r *settlementRepository) Save(ctx context.Context, j *models.SettlementJob) error {
	return r.db.WithContext(ctx).Save(j).Error
}

func (r *settlementRepository) ListPending(ctx context.Context, limit int) ([]models.SettlementJob, error) {
	var list []models.SettlementJob
	err := r.db.WithContext(ctx).Where("status = ?", domain.SettlementJobPending).
		Order("id ASC").Limit(limit).Find(&list).Error
	return list, err
}
