package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that take part in one unit of work.
// Repositories obtained from the Store passed to ExecuteInTransaction share
// the transaction and its row locks.
type Store interface {
	Wallets() WalletRepository
	Entries() LedgerEntryRepository
	Limits() TransferLimitRepository
	Cards() CardRepository
	TopUps() TopUpRepository
	Metrics() MetricsRepository

	ExecuteInTransaction(ctx context.Context, fn func(Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Wallets() WalletRepository       { return &walletRepository{db: s.db} }
func (s *gormStore) Entries() LedgerEntryRepository  { return &ledgerEntryRepository{db: s.db} }
func (s *gormStore) Limits() TransferLimitRepository { return &transferLimitRepository{db: s.db} }
func (s *gormStore) Cards() CardRepository           { return &cardRepository{db: s.db} }
func (s *gormStore) TopUps() TopUpRepository         { return &topUpRepository{db: s.db} }
func (s *gormStore) Metrics() MetricsRepository      { return &metricsRepository{db: s.db} }

func (s *gormStore) ExecuteInTransaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
