package funding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "ledgerpay/internal/errors"
	"ledgerpay/internal/events"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/services/processor"
	"ledgerpay/internal/services/refcode"
	"ledgerpay/internal/services/wallet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	opFund     = "card_funding"
	opWithdraw = "card_withdrawal"

	compensationTimeout = 10 * time.Second
)

type service struct {
	store     repositories.Store
	ledger    Ledger
	processor processor.Client
	publisher events.Publisher
	metrics   wallet.MetricsCollector
	config    Config
	log       logrus.FieldLogger
	now       func() time.Time
}

type Option func(*service)

func WithPublisher(p events.Publisher) Option {
	return func(s *service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithMetrics(m wallet.MetricsCollector) Option {
	return func(s *service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(store repositories.Store, ledger Ledger, client processor.Client, config Config, log logrus.FieldLogger, opts ...Option) Service {
	if store == nil {
		panic("store is required")
	}
	if ledger == nil {
		panic("ledger is required")
	}
	if client == nil {
		panic("processor client is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if config.Currency == "" {
		config.Currency = "USD"
	}
	config.Currency = strings.ToUpper(config.Currency)

	s := &service{
		store:     store,
		ledger:    ledger,
		processor: client,
		publisher: events.NoopPublisher{},
		metrics:   &wallet.NoopMetricsCollector{},
		config:    config,
		log:       log.WithField("component", "funding"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// movement describes one direction of value between wallet and card.
type movement struct {
	op        string
	entryType models.EntryType
	txType    string
	event     string
	// limit returns the new card limit, or an error when the move is not
	// allowed against the current one.
	limit       func(card *models.Card, amount decimal.Decimal) (decimal.Decimal, error)
	description func(card *models.Card) string
	signed      func(amount decimal.Decimal) decimal.Decimal
}

var fundMovement = movement{
	op:        opFund,
	entryType: models.EntryCardFunding,
	txType:    models.CardTxFunding,
	event:     events.TypeCardFunded,
	limit: func(card *models.Card, amount decimal.Decimal) (decimal.Decimal, error) {
		if card.Status != models.CardStatusActive {
			return decimal.Zero, apperrors.ErrCardNotActive
		}
		return card.SpendingLimit.Add(amount), nil
	},
	description: func(card *models.Card) string {
		return fmt.Sprintf("Fund virtual card ****%s", card.Last4)
	},
	signed: decimal.Decimal.Neg,
}

var withdrawMovement = movement{
	op:        opWithdraw,
	entryType: models.EntryCardWithdrawal,
	txType:    models.CardTxWithdrawal,
	event:     events.TypeCardWithdrawn,
	limit: func(card *models.Card, amount decimal.Decimal) (decimal.Decimal, error) {
		if amount.GreaterThan(card.SpendingLimit) {
			return decimal.Zero, apperrors.ErrWithdrawExceedsLimit.Withf(
				"Cannot withdraw more than available card limit. Available: $%s", card.SpendingLimit.StringFixed(2))
		}
		return decimal.Max(decimal.Zero, card.SpendingLimit.Sub(amount)), nil
	},
	description: func(card *models.Card) string {
		return fmt.Sprintf("Withdraw from virtual card ****%s", card.Last4)
	},
	signed: func(amount decimal.Decimal) decimal.Decimal { return amount },
}

// FundCard debits the wallet and raises the card's spending limit by the
// same amount.
func (s *service) FundCard(ctx context.Context, userID, cardID uint, amount decimal.Decimal) (*Result, error) {
	return s.move(ctx, fundMovement, userID, cardID, amount)
}

// WithdrawToWallet lowers the card's spending limit and credits the
// wallet. Card status is not checked so value can be recovered from a
// frozen card.
func (s *service) WithdrawToWallet(ctx context.Context, userID, cardID uint, amount decimal.Decimal) (*Result, error) {
	return s.move(ctx, withdrawMovement, userID, cardID, amount)
}

// move runs one wallet/card movement. The processor limit is changed
// inside the database transaction after the ledger leg succeeds; if the
// transaction then fails, the previous limit is restored on a best-effort
// basis.
func (s *service) move(ctx context.Context, m movement, userID, cardID uint, amount decimal.Decimal) (*Result, error) {
	start := s.now()
	defer func() { s.metrics.RecordOperationDuration(m.op, time.Since(start)) }()

	amount = amount.Round(2)
	if !amount.IsPositive() {
		s.metrics.RecordOperationResult(m.op, "rejected")
		return nil, apperrors.ErrInvalidAmount.Withf("Amount must be positive")
	}

	var (
		mutation      *wallet.Mutation
		card          *models.Card
		cardTx        *models.CardTransaction
		previousLimit decimal.Decimal
		applied       bool
	)
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		var err error
		card, err = ownedCard(ctx, tx, userID, cardID, true)
		if err != nil {
			return err
		}
		previousLimit = card.SpendingLimit
		newLimit, err := m.limit(card, amount)
		if err != nil {
			return err
		}

		mutation, err = s.ledger.ApplyDeltaTx(ctx, tx, wallet.Delta{
			UserID:      userID,
			Amount:      m.signed(amount),
			Type:        m.entryType,
			Reference:   refcode.Sortable(refcode.PrefixFunding),
			Description: m.description(card),
			Metadata: models.NewMetadata(m.entryType, map[string]interface{}{
				models.MetaCardID:          card.ID,
				models.MetaProcessorCardID: card.ProcessorCardID,
				models.MetaPreviousLimit:   previousLimit.StringFixed(2),
				models.MetaNewLimit:        newLimit.StringFixed(2),
			}),
		})
		if err != nil {
			return err
		}

		if _, err := s.processor.SetSpendingLimit(ctx, card.ProcessorCardID, newLimit, card.Currency, uuid.NewString()); err != nil {
			return fmt.Errorf("failed to update processor spending limit: %w", err)
		}
		applied = true

		card.SpendingLimit = newLimit
		card.UpdatedAt = s.now().UTC()
		if err := tx.Cards().UpdateCard(ctx, card); err != nil {
			return err
		}

		entryID := mutation.Entry.ID
		cardTx = &models.CardTransaction{
			CardID:        card.ID,
			UserID:        userID,
			Type:          m.txType,
			Status:        models.CardTxSettled,
			Amount:        amount,
			Currency:      card.Currency,
			LedgerEntryID: &entryID,
			Metadata: models.JSON{
				models.MetaPreviousLimit: previousLimit.StringFixed(2),
				models.MetaNewLimit:      newLimit.StringFixed(2),
			},
		}
		_, err = tx.Cards().CreateTransaction(ctx, cardTx)
		return err
	})
	if err != nil {
		s.metrics.RecordOperationResult(m.op, "failed")
		fields := logrus.Fields{"user_id": userID, "card_id": cardID, "amount": amount.StringFixed(2)}
		if applied {
			s.restoreLimit(ctx, card, previousLimit, fields)
		}
		s.log.WithError(err).WithFields(fields).Warn(m.op + " rolled back")
		return nil, err
	}

	s.ledger.Committed(ctx, mutation)
	s.metrics.RecordOperationResult(m.op, "success")

	result := &Result{
		Card:          card,
		Transaction:   cardTx,
		Entry:         mutation.Entry,
		WalletBalance: mutation.Wallet.Balance,
	}
	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"card_id":   card.ID,
		"amount":    amount.StringFixed(2),
		"limit":     card.SpendingLimit.StringFixed(2),
		"reference": mutation.Entry.Reference,
	}).Info(m.op + " completed")

	if err := s.publisher.Publish(ctx, events.New(m.event, mutation.Entry.ReferenceCode(), result)); err != nil {
		s.log.WithError(err).WithField("reference", mutation.Entry.Reference).Warn("failed to publish funding event")
	}
	return result, nil
}

// restoreLimit puts the processor limit back after a rolled-back movement.
func (s *service) restoreLimit(ctx context.Context, card *models.Card, limit decimal.Decimal, fields logrus.Fields) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	log := s.log.WithFields(fields).WithField("restore_limit", limit.StringFixed(2))
	if _, err := s.processor.SetSpendingLimit(ctx, card.ProcessorCardID, limit, card.Currency, uuid.NewString()); err != nil {
		log.WithError(err).Error("failed to restore processor spending limit, manual reconciliation required")
		return
	}
	log.Warn("processor spending limit restored")
}

// LinkCard mirrors an existing processor card, and its cardholder, for
// userID. Linking the same card again returns the stored row.
func (s *service) LinkCard(ctx context.Context, userID uint, processorCardID string) (*models.Card, error) {
	if existing, err := s.store.Cards().GetCardByProcessorID(ctx, processorCardID); err == nil {
		if existing.UserID != userID {
			return nil, apperrors.ErrCardForbidden
		}
		return existing, nil
	} else if !errors.Is(err, repositories.ErrCardNotFound) {
		return nil, err
	}

	remote, err := s.processor.GetCard(ctx, processorCardID)
	if err != nil {
		return nil, err
	}
	holder, err := s.ensureCardholder(ctx, userID, remote.CardholderID)
	if err != nil {
		return nil, err
	}

	currency := remote.Currency
	if currency == "" {
		currency = s.config.Currency
	}
	card := &models.Card{
		UserID:          userID,
		CardholderID:    holder.ID,
		ProcessorCardID: remote.ID,
		Status:          localCardStatus(remote.Status),
		Last4:           remote.Last4,
		Currency:        currency,
		SpendingLimit:   remote.SpendingLimit,
	}
	if err := s.store.Cards().CreateCard(ctx, card); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "card_id": card.ID, "processor_card_id": remote.ID}).Info("card linked")
	return card, nil
}

func (s *service) ensureCardholder(ctx context.Context, userID uint, processorID string) (*models.Cardholder, error) {
	holder, err := s.store.Cards().GetCardholderByProcessorID(ctx, processorID)
	if err == nil {
		if holder.UserID != userID {
			return nil, apperrors.ErrCardForbidden
		}
		return holder, nil
	}
	if !errors.Is(err, repositories.ErrCardholderNotFound) {
		return nil, err
	}
	// A user has one cardholder; a card issued to another one is not theirs.
	if _, err := s.store.Cards().GetCardholderByUserID(ctx, userID); err == nil {
		return nil, apperrors.ErrCardForbidden.Withf("Card is issued to cardholder %s", processorID)
	} else if !errors.Is(err, repositories.ErrCardholderNotFound) {
		return nil, err
	}

	remote, err := s.processor.GetCardholder(ctx, processorID)
	if err != nil {
		return nil, err
	}
	holder = &models.Cardholder{
		UserID:                userID,
		ProcessorCardholderID: remote.ID,
		Name:                  remote.Name,
		Email:                 remote.Email,
		Status:                localCardholderStatus(remote.Status),
	}
	if err := s.store.Cards().CreateCardholder(ctx, holder); err != nil {
		return nil, err
	}
	return holder, nil
}

func (s *service) ListTransactions(ctx context.Context, userID, cardID uint, filter repositories.CardTransactionFilter) ([]models.CardTransaction, int64, error) {
	if _, err := ownedCard(ctx, s.store, userID, cardID, false); err != nil {
		return nil, 0, err
	}
	return s.store.Cards().ListTransactions(ctx, cardID, filter)
}

func ownedCard(ctx context.Context, store repositories.Store, userID, cardID uint, lock bool) (*models.Card, error) {
	get := store.Cards().GetCard
	if lock {
		get = store.Cards().GetCardForUpdate
	}
	card, err := get(ctx, cardID)
	if err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return nil, apperrors.ErrCardNotFound
		}
		return nil, err
	}
	if card.UserID != userID {
		return nil, apperrors.ErrCardForbidden
	}
	return card, nil
}

func localCardStatus(remote string) string {
	switch remote {
	case models.CardStatusActive, models.CardStatusInactive, models.CardStatusCanceled:
		return remote
	default:
		return models.CardStatusPending
	}
}

func localCardholderStatus(remote string) string {
	switch remote {
	case models.CardholderStatusActive:
		return models.CardholderStatusActive
	case models.CardholderStatusInactive, "blocked":
		return models.CardholderStatusInactive
	default:
		return models.CardholderStatusPending
	}
}
