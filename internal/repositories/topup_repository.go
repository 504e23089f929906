package repositories

import (
	"context"
	"errors"
	"fmt"

	"ledgerpay/internal/models"

	"gorm.io/gorm"
)

type topUpRepository struct {
	db *gorm.DB
}

func NewTopUpRepository(db *gorm.DB) TopUpRepository {
	return &topUpRepository{db: db}
}

func (r *topUpRepository) Create(ctx context.Context, topUp *models.TopUp) error {
	if err := r.db.WithContext(ctx).Create(topUp).Error; err != nil {
		return fmt.Errorf("failed to create top-up: %w", err)
	}
	return nil
}

func (r *topUpRepository) GetByID(ctx context.Context, id uint) (*models.TopUp, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *topUpRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.TopUp, error) {
	return r.first(r.db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID))
}

func (r *topUpRepository) first(q *gorm.DB) (*models.TopUp, error) {
	var topUp models.TopUp
	if err := q.First(&topUp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopUpNotFound
		}
		return nil, fmt.Errorf("failed to get top-up: %w", err)
	}
	return &topUp, nil
}

func (r *topUpRepository) Transition(ctx context.Context, id uint, from, to string, fields map[string]interface{}) error {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).Model(&models.TopUp{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update top-up status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}
