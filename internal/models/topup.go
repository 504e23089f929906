package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopUpPending   = "pending"
	TopUpCompleted = "completed"
	TopUpFailed    = "failed"
)

// TopUp tracks a processor payment intent that credits a wallet once it
// succeeds. The pending ledger entry is settled in the same transaction
// that completes the top-up.
type TopUp struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	UserID          uint            `gorm:"index;not null" json:"user_id"`
	PaymentIntentID string          `gorm:"size:64;uniqueIndex;not null" json:"payment_intent_id"`
	Amount          decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	Currency        string          `gorm:"size:3;not null" json:"currency"`
	Status          string          `gorm:"size:16;not null" json:"status"`
	LedgerEntryID   uint            `gorm:"not null" json:"ledger_entry_id"`
	ClientSecret    string          `gorm:"-" json:"client_secret,omitempty"`
	FailureReason   string          `json:"failure_reason,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
