package repository

import (
	"context"

	"meetly/internal/models"

	"gorm.io/gorm"
)

type disputeRepository struct {
	db *gorm.DB
}

func NewDisputeRepository(db *gorm.DB) DisputeRepository {
	return &disputeRepository{db: db}
}

// Create relies on the unique index on date_order_id; a second dispute for the same booking returns ErrDuplicate.
func (r *disputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	return translate(r.db.WithContext(ctx).Omit("Booking").Create(d).Error)
}

func (r *disputeRepository) GetByID(ctx context.Context, id uint) (*models.Dispute, error) {
	var d models.Dispute
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *disputeRepository) GetForUpdate(ctx context.Context, id uint) (*models.Dispute, error) {
	var d models.Dispute
	if err := forUpdate(r.db.WithContext(ctx)).First(&d, id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *disputeRepository) GetByBookingID(ctx context.Context, bookingID uint) (*models.Dispute, error) {
	var d models.Dispute
	if err := r.db.WithContext(ctx).Where("date_order_id = ?", bookingID).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *disputeRepository) Save(ctx context.Context, d *models.Dispute) error {
	return translate(r.db.WithContext(ctx).Omit("Booking").Save(d).Error)
}

func (r *disputeRepository) List(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error) {
	var list []models.Dispute
	q := r.db.WithContext(ctx).Model(&models.Dispute{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}
