package wallet

import (
	"context"
	"time"

	"ledgerpay/internal/models"

	"github.com/shopspring/decimal"
)

// Delta describes one balance change. Amount is signed: debit entry types
// take a negative amount, everything else a positive one.
type Delta struct {
	UserID      uint
	Amount      decimal.Decimal
	Type        models.EntryType
	FromUserID  *uint
	ToUserID    *uint
	Reference   string
	ExecutedAt  *time.Time
	Description string
	Metadata    models.JSON
}

// Mutation is the outcome of an applied Delta: the wallet as written and
// the entry that records the change.
type Mutation struct {
	Wallet *models.Wallet
	Entry  *models.LedgerEntry
}

// WalletConfig holds configuration for wallet operations
type WalletConfig struct {
	DefaultCashbackRate decimal.Decimal
	HistoryLimit        int
	MaxHistoryLimit     int
	StatsDays           int
}

// MetricsCollector defines the interface for collecting ledger metrics
type MetricsCollector interface {
	// Operation metrics
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)

	// Balance metrics
	RecordBalanceChange(entryType string, amount decimal.Decimal)

	// Cache metrics
	RecordCacheHit(key string)
	RecordCacheMiss(key string)
}

// Cache keeps a read-through copy of wallets. Implementations may be lossy.
type Cache interface {
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	CacheWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, userID uint) error
}

// LedgerStats is the admin overview of the whole ledger.
type LedgerStats struct {
	Wallets     int64                `json:"wallets"`
	Circulation decimal.Decimal      `json:"circulation"`
	Credits     decimal.Decimal      `json:"credits"`
	Debits      decimal.Decimal      `json:"debits"`
	Entries     int64                `json:"entries"`
	Daily       []models.DailyMetric `json:"daily"`
}
