package wallet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ledgerpay/internal/events"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type service struct {
	store     repositories.Store
	cache     Cache
	publisher events.Publisher
	config    WalletConfig
	metrics   MetricsCollector
	log       logrus.FieldLogger
	now       func() time.Time
}

type Option func(*service)

func WithCache(cache Cache) Option {
	return func(s *service) {
		if cache != nil {
			s.cache = cache
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithMetrics(m MetricsCollector) Option {
	return func(s *service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService creates a new wallet service
func NewService(store repositories.Store, config WalletConfig, log logrus.FieldLogger, opts ...Option) Service {
	if store == nil {
		panic("store is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	// Set default configuration values if not provided
	if config.DefaultCashbackRate.IsZero() {
		config.DefaultCashbackRate = decimal.RequireFromString("0.05")
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = DefaultHistoryLimit
	}
	if config.MaxHistoryLimit <= 0 {
		config.MaxHistoryLimit = DefaultMaxHistoryLimit
	}
	if config.StatsDays <= 0 {
		config.StatsDays = DefaultStatsDays
	}

	s := &service{
		store:     store,
		cache:     noopCache{},
		publisher: events.NoopPublisher{},
		config:    config,
		metrics:   &NoopMetricsCollector{},
		log:       log.WithField("component", "wallet"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	// Try cache first
	if wallet, err := s.cache.GetWallet(ctx, userID); err == nil && wallet != nil {
		s.metrics.RecordCacheHit("wallet")
		return wallet, nil
	}
	s.metrics.RecordCacheMiss("wallet")

	wallet, err := s.store.Wallets().GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	if !wallet.Active {
		return nil, ErrWalletNotFound
	}

	s.cacheWallet(ctx, wallet)
	return wallet, nil
}

func (s *service) GetOrCreateWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	wallet, err := s.GetWallet(ctx, userID)
	if err == nil || !errors.Is(err, ErrWalletNotFound) {
		return wallet, err
	}

	wallet, err = s.store.Wallets().Create(ctx, s.newWallet(userID))
	if err != nil {
		return nil, err
	}
	// An inactive wallet blocks creation of a fresh one.
	if !wallet.Active {
		return nil, ErrWalletNotFound
	}

	s.log.WithField("user_id", userID).Info("wallet created")
	s.cacheWallet(ctx, wallet)
	return wallet, nil
}

func (s *service) Deactivate(ctx context.Context, userID uint) error {
	if err := s.store.Wallets().SetActive(ctx, userID, false); err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return ErrWalletNotFound
		}
		return err
	}
	s.invalidate(ctx, userID)
	s.log.WithField("user_id", userID).Info("wallet deactivated")
	return nil
}

func (s *service) ApplyDelta(ctx context.Context, d Delta) (*Mutation, error) {
	var mutation *Mutation
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		var err error
		mutation, err = s.ApplyDeltaTx(ctx, tx, d)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Committed(ctx, mutation)
	return mutation, nil
}

// ApplyDeltaTx locks the user's wallet inside tx, applies the change and
// appends a completed entry. Credits create a missing wallet; debits
// require an active one and never take the available balance below zero.
func (s *service) ApplyDeltaTx(ctx context.Context, tx repositories.Store, d Delta) (*Mutation, error) {
	start := s.now()
	defer func() { s.metrics.RecordOperationDuration(opApplyDelta, time.Since(start)) }()

	d, err := normalizeDelta(d)
	if err != nil {
		s.metrics.RecordOperationResult(opApplyDelta, "invalid")
		return nil, err
	}

	wallet, err := s.lockWallet(ctx, tx, d.UserID, d.Amount.IsPositive())
	if err != nil {
		s.metrics.RecordOperationResult(opApplyDelta, "wallet_not_found")
		return nil, err
	}

	if err := s.apply(wallet, d.Amount); err != nil {
		s.metrics.RecordOperationResult(opApplyDelta, "insufficient_balance")
		return nil, err
	}
	if err := tx.Wallets().Update(ctx, wallet); err != nil {
		return nil, err
	}

	entry := s.buildEntry(wallet, d, models.EntryCompleted)
	entry.BalanceAfter = wallet.Balance
	if err := tx.Entries().Create(ctx, entry); err != nil {
		return nil, err
	}

	s.metrics.RecordOperationResult(opApplyDelta, "success")
	return &Mutation{Wallet: wallet, Entry: entry}, nil
}

// Committed runs the post-commit side effects of mutations: daily
// metrics, cache invalidation and events. None of them can fail the
// operation; errors are logged.
func (s *service) Committed(ctx context.Context, mutations ...*Mutation) {
	for _, m := range mutations {
		if m == nil || m.Entry == nil {
			continue
		}
		entry := m.Entry
		log := s.log.WithFields(logrus.Fields{
			"user_id":  entry.UserID,
			"entry_id": entry.ID,
			"type":     entry.Type,
		})

		day := entry.CreatedAt.UTC().Format("2006-01-02")
		if err := s.store.Metrics().RecordDaily(ctx, day, entry.Amount); err != nil {
			log.WithError(err).Warn("failed to record daily metrics")
		}

		s.invalidate(ctx, entry.UserID)
		s.metrics.RecordBalanceChange(string(entry.Type), entry.Amount)

		evt := events.New(events.TypeWalletMutated, strconv.FormatUint(uint64(entry.UserID), 10), map[string]interface{}{
			"entry_id":      entry.ID,
			"user_id":       entry.UserID,
			"type":          entry.Type,
			"amount":        entry.Amount,
			"balance_after": entry.BalanceAfter,
			"reference":     entry.ReferenceCode(),
		})
		if err := s.publisher.Publish(ctx, evt); err != nil {
			log.WithError(err).Warn("failed to publish wallet event")
		}
	}
}

// lockWallet takes the row lock on the user's wallet, creating the row
// first when create is set.
func (s *service) lockWallet(ctx context.Context, tx repositories.Store, userID uint, create bool) (*models.Wallet, error) {
	wallet, err := tx.Wallets().GetByUserIDForUpdate(ctx, userID)
	if errors.Is(err, repositories.ErrWalletNotFound) && create {
		if _, err = tx.Wallets().Create(ctx, s.newWallet(userID)); err != nil {
			return nil, err
		}
		wallet, err = tx.Wallets().GetByUserIDForUpdate(ctx, userID)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	if !wallet.Active {
		return nil, ErrWalletNotFound
	}
	return wallet, nil
}

// apply changes the in-memory wallet. It does not write.
func (s *service) apply(wallet *models.Wallet, amount decimal.Decimal) error {
	if amount.IsNegative() {
		requested := amount.Neg()
		if available := wallet.Available(); available.LessThan(requested) {
			return ErrInsufficientBalance.Withf("Insufficient balance. Available: $%s, Requested: $%s",
				available.StringFixed(2), requested.StringFixed(2))
		}
		wallet.TotalSpent = wallet.TotalSpent.Add(requested)
	} else {
		wallet.TotalEarned = wallet.TotalEarned.Add(amount)
	}
	wallet.Balance = wallet.Balance.Add(amount)
	now := s.now().UTC()
	wallet.LastTransactionAt = &now
	return nil
}

func (s *service) newWallet(userID uint) *models.Wallet {
	return &models.Wallet{
		UserID:        userID,
		Balance:       decimal.Zero,
		LockedBalance: decimal.Zero,
		TotalEarned:   decimal.Zero,
		TotalSpent:    decimal.Zero,
		Tier:          models.RewardTierBronze,
		CashbackRate:  s.config.DefaultCashbackRate,
		Active:        true,
	}
}

func (s *service) buildEntry(wallet *models.Wallet, d Delta, status models.EntryStatus) *models.LedgerEntry {
	entry := &models.LedgerEntry{
		WalletID:    wallet.ID,
		UserID:      wallet.UserID,
		Amount:      d.Amount,
		Type:        d.Type,
		Status:      status,
		FromUserID:  d.FromUserID,
		ToUserID:    d.ToUserID,
		ExecutedAt:  d.ExecutedAt,
		Description: d.Description,
		Metadata:    d.Metadata,
		CreatedAt:   s.now().UTC(),
	}
	if d.Reference != "" {
		ref := d.Reference
		entry.Reference = &ref
	}
	if entry.Metadata == nil {
		entry.Metadata = models.NewMetadata(d.Type, nil)
	}
	return entry
}

func (s *service) cacheWallet(ctx context.Context, wallet *models.Wallet) {
	if err := s.cache.CacheWallet(ctx, wallet); err != nil {
		s.log.WithError(err).WithField("user_id", wallet.UserID).Debug("failed to cache wallet")
	}
}

func (s *service) invalidate(ctx context.Context, userID uint) {
	if err := s.cache.InvalidateWallet(ctx, userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("failed to invalidate wallet cache")
	}
}

// normalizeDelta rounds the amount to cents and checks that its sign
// matches the entry type.
func normalizeDelta(d Delta) (Delta, error) {
	if !d.Type.Valid() {
		return d, ErrInvalidEntryType.Withf("invalid ledger entry type %q", d.Type)
	}
	if d.UserID == 0 {
		return d, ErrWalletNotFound
	}
	d.Amount = d.Amount.Round(2)
	if d.Amount.IsZero() {
		return d, ErrInvalidAmount.Withf("amount must not be zero")
	}
	if d.Type.IsDebit() != d.Amount.IsNegative() {
		return d, ErrInvalidAmount.Withf("amount sign does not match entry type %s", d.Type)
	}
	return d, nil
}

func positive(amount decimal.Decimal) error {
	if !amount.Round(2).IsPositive() {
		return ErrInvalidAmount.Withf("amount must be greater than zero")
	}
	return nil
}

func describe(prefix, detail string) string {
	if detail == "" {
		return prefix
	}
	return fmt.Sprintf("%s: %s", prefix, detail)
}
