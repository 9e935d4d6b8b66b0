package ratelimit

import (
	"context"
	"time"

	"meetly/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore keeps buckets in rate_limit_buckets and updates each one under a row lock.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Take(ctx context.Context, identifier string, class Class, rule Rule, now time.Time) (Result, error) {
	var res Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.RateLimitBucket{
			Identifier: identifier,
			Endpoint:   string(class),
			Tokens:     rule.MaxTokens,
			LastRefill: now,
			UpdatedAt:  now,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		var row models.RateLimitBucket
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("identifier = ? AND endpoint = ?", identifier, string(class)).
			First(&row).Error
		if err != nil {
			return err
		}
		next, r := take(bucket{tokens: row.Tokens, lastRefill: row.LastRefill}, rule, now)
		res = r
		return tx.Model(&models.RateLimitBucket{}).
			Where("identifier = ? AND endpoint = ?", identifier, string(class)).
			Updates(map[string]interface{}{
				"tokens":      next.tokens,
				"last_refill": next.lastRefill,
				"updated_at":  now,
			}).Error
	})
	return res, err
}

func (s *SQLStore) Sweep(ctx context.Context, idleBefore time.Time) (int, error) {
	res := s.db.WithContext(ctx).Where("updated_at < ?", idleBefore).Delete(&models.RateLimitBucket{})
	return int(res.RowsAffected), res.Error
}
