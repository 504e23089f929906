package repositories

import (
	"context"
	"errors"
	"fmt"

	"ledgerpay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type transferLimitRepository struct {
	db *gorm.DB
}

func NewTransferLimitRepository(db *gorm.DB) TransferLimitRepository {
	return &transferLimitRepository{db: db}
}

func (r *transferLimitRepository) Create(ctx context.Context, limit *models.TransferLimit) (*models.TransferLimit, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(limit).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer limit: %w", err)
	}
	return r.GetByUserID(ctx, limit.UserID)
}

func (r *transferLimitRepository) GetByUserID(ctx context.Context, userID uint) (*models.TransferLimit, error) {
	return r.first(r.db.WithContext(ctx), userID)
}

func (r *transferLimitRepository) GetByUserIDForUpdate(ctx context.Context, userID uint) (*models.TransferLimit, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), userID)
}

func (r *transferLimitRepository) first(q *gorm.DB, userID uint) (*models.TransferLimit, error) {
	var limit models.TransferLimit
	if err := q.Where("user_id = ?", userID).First(&limit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLimitNotFound
		}
		return nil, fmt.Errorf("failed to get transfer limit: %w", err)
	}
	return &limit, nil
}

func (r *transferLimitRepository) Update(ctx context.Context, limit *models.TransferLimit) error {
	result := r.db.WithContext(ctx).Model(limit).Select(
		"tier", "daily_amount", "monthly_amount", "lifetime_amount",
		"daily_count", "monthly_count", "lifetime_count",
		"last_daily_reset", "last_monthly_reset", "updated_at",
	).Updates(limit)
	if result.Error != nil {
		return fmt.Errorf("failed to update transfer limit: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrLimitNotFound
	}
	return nil
}
