package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Reward tiers. They only affect the default cashback rate shown to users;
// transfer caps are driven by TransferTier.
const (
	RewardTierBronze   = "bronze"
	RewardTierSilver   = "silver"
	RewardTierGold     = "gold"
	RewardTierPlatinum = "platinum"
	RewardTierDiamond  = "diamond"
)

// Wallet is the single balance held by a user. Wallets are never deleted;
// deactivation flips Active.
type Wallet struct {
	ID                uint            `gorm:"primarykey" json:"id"`
	UserID            uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance           decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"balance"`
	LockedBalance     decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"locked_balance"`
	TotalEarned       decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"total_earned"`
	TotalSpent        decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"total_spent"`
	Tier              string          `gorm:"size:16;not null" json:"tier"`
	CashbackRate      decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"cashback_rate"`
	Active            bool            `gorm:"not null" json:"active"`
	LastTransactionAt *time.Time      `json:"last_transaction_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.Tier == "" {
		w.Tier = RewardTierBronze
	}
	return nil
}

// Available is the balance that can be spent right now.
func (w *Wallet) Available() decimal.Decimal {
	return w.Balance.Sub(w.LockedBalance)
}
