package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransferTier string

const (
	TierNone  TransferTier = "none"
	TierBasic TransferTier = "basic"
	TierFull  TransferTier = "full"
)

// TransferTiers lists tiers from least to most permissive.
var TransferTiers = []TransferTier{TierNone, TierBasic, TierFull}

func (t TransferTier) Valid() bool {
	for _, known := range TransferTiers {
		if t == known {
			return true
		}
	}
	return false
}

// TransferLimit tracks outgoing transfer volume for one user. The daily
// and monthly accumulators are reset lazily when read after a boundary.
type TransferLimit struct {
	ID               uint            `gorm:"primarykey" json:"id"`
	UserID           uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	Tier             TransferTier    `gorm:"size:16;not null" json:"tier"`
	DailyAmount      decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"daily_amount"`
	MonthlyAmount    decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"monthly_amount"`
	LifetimeAmount   decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"lifetime_amount"`
	DailyCount       int             `gorm:"not null" json:"daily_count"`
	MonthlyCount     int             `gorm:"not null" json:"monthly_count"`
	LifetimeCount    int             `gorm:"not null" json:"lifetime_count"`
	LastDailyReset   time.Time       `gorm:"not null" json:"last_daily_reset"`
	LastMonthlyReset time.Time       `gorm:"not null" json:"last_monthly_reset"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
