package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryReward         EntryType = "reward"
	EntryCashback       EntryType = "cashback"
	EntryReferral       EntryType = "referral"
	EntryPurchase       EntryType = "purchase"
	EntryTransferOut    EntryType = "transfer_out"
	EntryTransferIn     EntryType = "transfer_in"
	EntryPlatformFee    EntryType = "platform_fee"
	EntryTopUp          EntryType = "topup"
	EntryCardFunding    EntryType = "card_funding"
	EntryCardWithdrawal EntryType = "card_withdrawal"
	EntryBurn           EntryType = "burn"
	EntryMint           EntryType = "mint"
	EntryBonus          EntryType = "bonus"
	EntryPenalty        EntryType = "penalty"
)

// IsDebit reports whether entries of this type take value out of a wallet.
func (t EntryType) IsDebit() bool {
	switch t {
	case EntryPurchase, EntryTransferOut, EntryPlatformFee, EntryCardFunding, EntryBurn, EntryPenalty:
		return true
	}
	return false
}

func (t EntryType) Valid() bool {
	switch t {
	case EntryReward, EntryCashback, EntryReferral, EntryPurchase, EntryTransferOut,
		EntryTransferIn, EntryPlatformFee, EntryTopUp, EntryCardFunding,
		EntryCardWithdrawal, EntryBurn, EntryMint, EntryBonus, EntryPenalty:
		return true
	}
	return false
}

type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryCompleted EntryStatus = "completed"
	EntryFailed    EntryStatus = "failed"
	EntryCancelled EntryStatus = "cancelled"
)

// LedgerEntry is one immutable line of the wallet log. Amount is signed:
// credits are positive, debits negative. Legs of one operation share
// Reference and ExecutedAt.
type LedgerEntry struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	WalletID     uint            `gorm:"index;not null" json:"wallet_id"`
	UserID       uint            `gorm:"index;not null" json:"user_id"`
	Amount       decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	BalanceAfter decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"balance_after"`
	Type         EntryType       `gorm:"size:32;index;not null" json:"type"`
	Status       EntryStatus     `gorm:"size:16;not null" json:"status"`
	FromUserID   *uint           `json:"from_user_id,omitempty"`
	ToUserID     *uint           `json:"to_user_id,omitempty"`
	Reference    *string         `gorm:"size:64;index" json:"reference,omitempty"`
	ExecutedAt   *time.Time      `json:"executed_at,omitempty"`
	Description  string          `json:"description"`
	Metadata     JSON            `gorm:"type:jsonb" json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ReferenceCode returns the shared reference or an empty string.
func (e *LedgerEntry) ReferenceCode() string {
	if e.Reference == nil {
		return ""
	}
	return *e.Reference
}
