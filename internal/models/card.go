package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CardStatusPending  = "pending"
	CardStatusActive   = "active"
	CardStatusInactive = "inactive"
	CardStatusCanceled = "canceled"
)

const (
	CardholderStatusPending  = "pending"
	CardholderStatusActive   = "active"
	CardholderStatusInactive = "inactive"
)

// Cardholder mirrors the processor-side cardholder for a user.
type Cardholder struct {
	ID                    uint      `gorm:"primarykey" json:"id"`
	UserID                uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	ProcessorCardholderID string    `gorm:"size:64;uniqueIndex;not null" json:"processor_cardholder_id"`
	Name                  string    `json:"name"`
	Email                 string    `json:"email"`
	Status                string    `gorm:"size:16;not null" json:"status"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Card is a virtual card funded from its owner's wallet. SpendingLimit
// mirrors the processor's all-time limit in major units.
type Card struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	UserID          uint            `gorm:"index;not null" json:"user_id"`
	CardholderID    uint            `gorm:"index;not null" json:"cardholder_id"`
	Cardholder      *Cardholder     `gorm:"foreignKey:CardholderID" json:"cardholder,omitempty"`
	ProcessorCardID string          `gorm:"size:64;uniqueIndex;not null" json:"processor_card_id"`
	Status          string          `gorm:"size:16;not null" json:"status"`
	Last4           string          `gorm:"size:4" json:"last4"`
	Currency        string          `gorm:"size:3;not null" json:"currency"`
	SpendingLimit   decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"spending_limit"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

const (
	CardTxAuthorization = "authorization"
	CardTxCapture       = "capture"
	CardTxRefund        = "refund"
	CardTxFunding       = "funding"
	CardTxWithdrawal    = "withdrawal"
)

const (
	CardTxPending  = "pending"
	CardTxApproved = "approved"
	CardTxDeclined = "declined"
	CardTxSettled  = "settled"
	CardTxReversed = "reversed"
)

// CardTransaction records a single card event. Processor-originated rows
// are unique by their processor id; funding rows link to the wallet entry.
type CardTransaction struct {
	ID                       uint            `gorm:"primarykey" json:"id"`
	CardID                   uint            `gorm:"index;not null" json:"card_id"`
	UserID                   uint            `gorm:"index;not null" json:"user_id"`
	Type                     string          `gorm:"size:16;not null" json:"type"`
	Status                   string          `gorm:"size:16;not null" json:"status"`
	Amount                   decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	Currency                 string          `gorm:"size:3;not null" json:"currency"`
	MerchantName             string          `json:"merchant_name"`
	MerchantCategory         string          `json:"merchant_category"`
	DeclineReason            string          `json:"decline_reason,omitempty"`
	ProcessorAuthorizationID *string         `gorm:"size:64;uniqueIndex" json:"processor_authorization_id,omitempty"`
	ProcessorTransactionID   *string         `gorm:"size:64;uniqueIndex" json:"processor_transaction_id,omitempty"`
	LinkedAuthorizationID    string          `gorm:"size:64;index" json:"linked_authorization_id,omitempty"`
	LedgerEntryID            *uint           `json:"ledger_entry_id,omitempty"`
	Metadata                 JSON            `gorm:"type:jsonb" json:"metadata"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
}
