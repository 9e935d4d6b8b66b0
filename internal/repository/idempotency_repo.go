package repository

import (
	"context"

	"meetly/internal/models"

	"gorm.io/gorm"
)

type idempotencyRepository struct {
	db *gorm.DB
}

func NewIdempotencyRepository(db *gorm.DB) IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

func (r *idempotencyRepository) Get(ctx context.Context, userID uint, scope, key string) (*models.IdempotencyKey, error) {
	var k models.IdempotencyKey
	err := r.db.WithContext(ctx).
		Where(&models.IdempotencyKey{UserID: userID, Scope: scope, Key: key}).
		First(&k).Error
	if err != nil {
		return nil, translate(err)
	}
	return &k, nil
}

func (r *idempotencyRepository) Create(ctx context.Context, k *models.IdempotencyKey) error {
	return translate(r.db.WithContext(ctx).Create(k).Error)
}
