package repositories

import (
	"context"
	"errors"

	"ledgerpay/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrEntryNotFound           = errors.New("ledger entry not found")
	ErrLimitNotFound           = errors.New("transfer limit not found")
	ErrCardNotFound            = errors.New("card not found")
	ErrCardholderNotFound      = errors.New("cardholder not found")
	ErrCardTransactionNotFound = errors.New("card transaction not found")
	ErrTopUpNotFound           = errors.New("top-up not found")
	ErrUserNotFound            = errors.New("user not found")
	// ErrStatusConflict means a conditional status transition matched no row.
	ErrStatusConflict = errors.New("record is not in the expected status")
)

// WalletRepository defines the interface for wallet-related database operations
type WalletRepository interface {
	// Create inserts the wallet unless one already exists for the user and
	// returns the stored row either way.
	Create(ctx context.Context, wallet *models.Wallet) (*models.Wallet, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error)
	// GetByUserIDForUpdate locks the wallet row until the transaction ends.
	GetByUserIDForUpdate(ctx context.Context, userID uint) (*models.Wallet, error)
	Update(ctx context.Context, wallet *models.Wallet) error
	SetActive(ctx context.Context, userID uint, active bool) error

	// Analytics and reporting
	TotalBalance(ctx context.Context) (decimal.Decimal, error)
	Count(ctx context.Context) (int64, error)
}

// LedgerEntryRepository is append-only apart from status transitions.
type LedgerEntryRepository interface {
	Create(ctx context.Context, entry *models.LedgerEntry) error
	GetByID(ctx context.Context, id uint) (*models.LedgerEntry, error)
	// Transition moves an entry from one status to another and applies the
	// extra column updates. It returns ErrStatusConflict when the entry is
	// no longer in status from.
	Transition(ctx context.Context, id uint, from, to models.EntryStatus, fields map[string]interface{}) error
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.LedgerEntry, error)
	ListByReference(ctx context.Context, reference string) ([]models.LedgerEntry, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	Totals(ctx context.Context) (*LedgerTotals, error)
}

// LedgerTotals summarises completed entries across all wallets.
type LedgerTotals struct {
	Credits decimal.Decimal
	Debits  decimal.Decimal
	Entries int64
}

type TransferLimitRepository interface {
	Create(ctx context.Context, limit *models.TransferLimit) (*models.TransferLimit, error)
	GetByUserID(ctx context.Context, userID uint) (*models.TransferLimit, error)
	GetByUserIDForUpdate(ctx context.Context, userID uint) (*models.TransferLimit, error)
	Update(ctx context.Context, limit *models.TransferLimit) error
}

// CardTransactionFilter narrows ListTransactions. Zero values match all.
type CardTransactionFilter struct {
	Type   string
	Status string
	Limit  int
	Offset int
}

type CardRepository interface {
	CreateCardholder(ctx context.Context, holder *models.Cardholder) error
	GetCardholderByProcessorID(ctx context.Context, processorID string) (*models.Cardholder, error)
	GetCardholderByUserID(ctx context.Context, userID uint) (*models.Cardholder, error)
	UpdateCardholderStatus(ctx context.Context, processorID, status string) error

	CreateCard(ctx context.Context, card *models.Card) error
	GetCard(ctx context.Context, id uint) (*models.Card, error)
	GetCardForUpdate(ctx context.Context, id uint) (*models.Card, error)
	GetCardByProcessorID(ctx context.Context, processorID string) (*models.Card, error)
	UpdateCard(ctx context.Context, card *models.Card) error
	UpdateCardStatus(ctx context.Context, processorID, status string) error

	// CreateTransaction inserts tx unless a row with the same processor id
	// exists. created is false when the insert was skipped.
	CreateTransaction(ctx context.Context, tx *models.CardTransaction) (created bool, err error)
	GetTransactionByProcessorID(ctx context.Context, processorTxID string) (*models.CardTransaction, error)
	GetTransactionByAuthorizationID(ctx context.Context, authorizationID string) (*models.CardTransaction, error)
	UpdateTransaction(ctx context.Context, tx *models.CardTransaction) error
	ListTransactions(ctx context.Context, cardID uint, filter CardTransactionFilter) ([]models.CardTransaction, int64, error)
}

type TopUpRepository interface {
	Create(ctx context.Context, topUp *models.TopUp) error
	GetByID(ctx context.Context, id uint) (*models.TopUp, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.TopUp, error)
	// Transition behaves like LedgerEntryRepository.Transition.
	Transition(ctx context.Context, id uint, from, to string, fields map[string]interface{}) error
}

type MetricsRepository interface {
	// RecordDaily folds one balance change into the aggregate for day.
	RecordDaily(ctx context.Context, day string, delta decimal.Decimal) error
	ListDaily(ctx context.Context, limit int) ([]models.DailyMetric, error)
}
