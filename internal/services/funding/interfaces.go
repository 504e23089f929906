package funding

import (
	"context"

	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/services/processor"
	"ledgerpay/internal/services/wallet"

	"github.com/shopspring/decimal"
)

// Ledger defines the wallet operations used by the reconciler.
type Ledger interface {
	ApplyDeltaTx(ctx context.Context, tx repositories.Store, d wallet.Delta) (*wallet.Mutation, error)
	Committed(ctx context.Context, mutations ...*wallet.Mutation)
}

// Service moves value between wallets and cards and keeps local card
// state in line with the processor.
type Service interface {
	// User-initiated funding
	FundCard(ctx context.Context, userID, cardID uint, amount decimal.Decimal) (*Result, error)
	WithdrawToWallet(ctx context.Context, userID, cardID uint, amount decimal.Decimal) (*Result, error)
	LinkCard(ctx context.Context, userID uint, processorCardID string) (*models.Card, error)
	ListTransactions(ctx context.Context, userID, cardID uint, filter repositories.CardTransactionFilter) ([]models.CardTransaction, int64, error)

	// Webhook ingestion
	HandleEvent(ctx context.Context, evt *processor.Event) (*WebhookResult, error)
	HandleAuthorizationRequest(ctx context.Context, auth *processor.Authorization) (bool, error)
	RecordAuthorization(ctx context.Context, auth *processor.Authorization) (*models.CardTransaction, error)
	RecordTransaction(ctx context.Context, tx *processor.Transaction) (*models.CardTransaction, error)
	UpdateTransaction(ctx context.Context, tx *processor.Transaction) (*models.CardTransaction, error)
	SyncCardStatus(ctx context.Context, processorCardID string) error
	SyncCardholderStatus(ctx context.Context, processorCardholderID string) error
}
