package repositories

import (
	"context"
	"fmt"
	"time"

	"ledgerpay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type metricsRepository struct {
	db *gorm.DB
}

func NewMetricsRepository(db *gorm.DB) MetricsRepository {
	return &metricsRepository{db: db}
}

func (r *metricsRepository) RecordDaily(ctx context.Context, day string, delta decimal.Decimal) error {
	row := models.DailyMetric{
		Day:               day,
		TotalTransactions: 1,
		DailyVolume:       delta.Abs(),
		TotalSupply:       delta,
		UpdatedAt:         time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_transactions": gorm.Expr("daily_metrics.total_transactions + 1"),
			"daily_volume":       gorm.Expr("daily_metrics.daily_volume + ?", delta.Abs()),
			"total_supply":       gorm.Expr("daily_metrics.total_supply + ?", delta),
			"updated_at":         row.UpdatedAt,
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to record daily metric: %w", err)
	}
	return nil
}

func (r *metricsRepository) ListDaily(ctx context.Context, limit int) ([]models.DailyMetric, error) {
	if limit <= 0 {
		limit = 30
	}
	var rows []models.DailyMetric
	if err := r.db.WithContext(ctx).Order("day DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list daily metrics: %w", err)
	}
	return rows, nil
}
