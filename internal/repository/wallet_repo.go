package repository

import (
	"context"

	"meetly/internal/models"

	"gorm.io/gorm"
)

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

var walletColumns = []string{"id", "balance", "escrow", "total_spending", "vip_tier", "is_pro"}

func (r *walletRepository) Get(ctx context.Context, userID uint) (*models.Wallet, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Select(walletColumns).First(&u, userID).Error; err != nil {
		return nil, translate(err)
	}
	return &u.Wallet, nil
}

func (r *walletRepository) GetForUpdate(ctx context.Context, userID uint) (*models.Wallet, error) {
	var u models.User
	if err := forUpdate(r.db.WithContext(ctx)).Select(walletColumns).First(&u, userID).Error; err != nil {
		return nil, translate(err)
	}
	return &u.Wallet, nil
}

func (r *walletRepository) Save(ctx context.Context, userID uint, w *models.Wallet) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"balance":        w.Balance,
		"escrow":         w.Escrow,
		"total_spending": w.TotalSpending,
		"vip_tier":       w.VIPTier,
		"is_pro":         w.IsPro,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL reports changed rows, so an unchanged wallet also lands here.
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
