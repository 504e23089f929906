package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyMetric aggregates ledger activity for one UTC day ("2006-01-02").
type DailyMetric struct {
	Day               string          `gorm:"primaryKey;size:10" json:"day"`
	TotalTransactions int64           `gorm:"not null" json:"total_transactions"`
	DailyVolume       decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"daily_volume"`
	TotalSupply       decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"total_supply"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
