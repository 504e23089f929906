package transfer

import (
	"time"

	"ledgerpay/internal/models"

	"github.com/shopspring/decimal"
)

type Config struct {
	FeeRate      decimal.Decimal
	FeeMinAmount decimal.Decimal
}

type Request struct {
	FromUserID uint
	ToUserID   uint
	Amount     decimal.Decimal
	Note       string
}

// Preview is the fee breakdown shown before a transfer. The fee is
// charged to the recipient after the full amount has been credited.
type Preview struct {
	RecipientID        uint            `json:"recipient_id"`
	RecipientName      string          `json:"recipient_name"`
	AmountSent         decimal.Decimal `json:"amount_sent"`
	AmountReceived     decimal.Decimal `json:"amount_received"`
	PlatformFee        decimal.Decimal `json:"platform_fee"`
	RecipientNetAmount decimal.Decimal `json:"recipient_net_amount"`
	FeePercentage      string          `json:"fee_percentage"`
}

// Leg summarises one ledger entry of a transfer.
type Leg struct {
	EntryID      uint             `json:"entry_id"`
	UserID       uint             `json:"user_id"`
	Type         models.EntryType `json:"type"`
	Amount       decimal.Decimal  `json:"amount"`
	BalanceAfter decimal.Decimal  `json:"balance_after"`
	Description  string           `json:"description"`
}

type Result struct {
	Reference        string          `json:"reference"`
	ExecutedAt       time.Time       `json:"executed_at"`
	Preview          Preview         `json:"preview"`
	Legs             []Leg           `json:"legs"`
	SenderBalance    decimal.Decimal `json:"sender_balance"`
	RecipientBalance decimal.Decimal `json:"recipient_balance"`
}

// Verification is what a participant sees when checking a code.
type Verification struct {
	Reference  string     `json:"reference"`
	ExecutedAt *time.Time `json:"executed_at"`
	Legs       []Leg      `json:"legs"`
}

type AdminVerification struct {
	Reference     string          `json:"reference"`
	ExecutedAt    *time.Time      `json:"executed_at"`
	Status        string          `json:"status"`
	SenderID      uint            `json:"sender_id"`
	SenderName    string          `json:"sender_name"`
	RecipientID   uint            `json:"recipient_id"`
	RecipientName string          `json:"recipient_name"`
	Amount        decimal.Decimal `json:"amount"`
	PlatformFee   decimal.Decimal `json:"platform_fee"`
	RecipientNet  decimal.Decimal `json:"recipient_net"`
	Note          string          `json:"note,omitempty"`
	Legs          []Leg           `json:"legs"`
}

func legOf(e *models.LedgerEntry) Leg {
	return Leg{
		EntryID:      e.ID,
		UserID:       e.UserID,
		Type:         e.Type,
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		Description:  e.Description,
	}
}
