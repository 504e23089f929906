package wallet

import (
	"context"

	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"

	"github.com/shopspring/decimal"
)

// Service defines the main wallet service interface
type Service interface {
	// Wallet lifecycle
	GetOrCreateWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	Deactivate(ctx context.Context, userID uint) error

	// Core mutation. ApplyDelta runs in its own transaction; the Tx
	// variants join the caller's and leave post-commit work to Committed.
	ApplyDelta(ctx context.Context, d Delta) (*Mutation, error)
	ApplyDeltaTx(ctx context.Context, tx repositories.Store, d Delta) (*Mutation, error)
	CreatePendingTx(ctx context.Context, tx repositories.Store, d Delta) (*models.LedgerEntry, error)
	SettlePendingTx(ctx context.Context, tx repositories.Store, entryID uint) (*Mutation, error)
	FailPendingTx(ctx context.Context, tx repositories.Store, entryID uint, reason string) error
	Committed(ctx context.Context, mutations ...*Mutation)

	// Single-entry operations
	Reward(ctx context.Context, userID uint, amount decimal.Decimal, reason string) (*Mutation, error)
	Bonus(ctx context.Context, userID uint, amount decimal.Decimal, reason string) (*Mutation, error)
	Referral(ctx context.Context, userID uint, amount decimal.Decimal, reason string) (*Mutation, error)
	Mint(ctx context.Context, userID uint, amount decimal.Decimal, reason string) (*Mutation, error)
	Burn(ctx context.Context, userID uint, amount decimal.Decimal, reason string) (*Mutation, error)
	Penalty(ctx context.Context, userID uint, amount decimal.Decimal, reason string) (*Mutation, error)
	Purchase(ctx context.Context, userID uint, amount decimal.Decimal, orderID string) (*Mutation, error)
	Cashback(ctx context.Context, userID uint, orderAmount decimal.Decimal, orderID string) (*Mutation, error)

	// Reporting
	History(ctx context.Context, userID uint, limit, offset int) ([]models.LedgerEntry, error)
	Stats(ctx context.Context) (*LedgerStats, error)
}
