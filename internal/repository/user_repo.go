package repository

import (
	"context"
	"time"

	"meetly/internal/models"

	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *models.User) error {
	return translate(r.db.WithContext(ctx).Create(u).Error)
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepository) GetForUpdate(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := forUpdate(r.db.WithContext(ctx)).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepository) ListIDsByRole(ctx context.Context, role string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Pluck("id", &ids).Error
	return ids, err
}

func (r *userRepository) UpdateRating(ctx context.Context, id uint, average float64, count int) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"rating_average": average, "rating_count": count}).Error
}

func (r *userRepository) MarkPhoneVerified(ctx context.Context, id uint, phone string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"phone": phone, "phone_verified_at": at}).Error
}

func (r *userRepository) SetFCMToken(ctx context.Context, id uint, token string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("fcm_token", token).Error
}
