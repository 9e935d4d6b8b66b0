package repository

import (
	"context"

	"meetly/internal/domain"
	"meetly/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, b *models.Booking) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(b).Error)
}

func (r *bookingRepository) GetByID(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *bookingRepository) GetForUpdate(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := forUpdate(r.db.WithContext(ctx)).First(&b, id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *bookingRepository) Save(ctx context.Context, b *models.Booking) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(b).Error)
}

func (r *bookingRepository) CountActiveByBooker(ctx context.Context, bookerID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("booker_id = ? AND status NOT IN ?", bookerID, []string{domain.BookingStatusCancelled, domain.BookingStatusRejected}).
		Count(&n).Error
	return n, err
}

func (r *bookingRepository) CountCompletedByBooker(ctx context.Context, bookerID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("booker_id = ? AND status = ?", bookerID, domain.BookingStatusCompleted).
		Count(&n).Error
	return n, err
}

func (r *bookingRepository) CountCompletedByPartner(ctx context.Context, partnerID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("partner_id = ? AND status = ?", partnerID, domain.BookingStatusCompleted).
		Count(&n).Error
	return n, err
}
