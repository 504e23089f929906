// Package topup credits wallets from processor-hosted payment intents. A
// top-up starts as a pending ledger entry and is settled exactly once,
// whether the success arrives by webhook or by an explicit refresh.
package topup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
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

// Ledger is the subset of the wallet service used for pending entries.
type Ledger interface {
	CreatePendingTx(ctx context.Context, tx repositories.Store, d wallet.Delta) (*models.LedgerEntry, error)
	SettlePendingTx(ctx context.Context, tx repositories.Store, entryID uint) (*wallet.Mutation, error)
	FailPendingTx(ctx context.Context, tx repositories.Store, entryID uint, reason string) error
	Committed(ctx context.Context, mutations ...*wallet.Mutation)
}

type Service interface {
	Create(ctx context.Context, userID uint, amount decimal.Decimal, currency string) (*models.TopUp, error)
	Get(ctx context.Context, userID, topUpID uint) (*models.TopUp, error)
	// Refresh asks the processor for the intent's current state and
	// resolves the top-up if it has reached a final status.
	Refresh(ctx context.Context, userID, topUpID uint) (*models.TopUp, error)
	HandleEvent(ctx context.Context, evt *processor.Event) (*models.TopUp, error)
}

type Config struct {
	Currency  string
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
}

type service struct {
	store     repositories.Store
	ledger    Ledger
	processor processor.Client
	publisher events.Publisher
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
		config:    config,
		log:       log.WithField("component", "topup"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a payment intent and records a pending entry for it. The
// returned top-up carries the client secret needed to confirm payment.
func (s *service) Create(ctx context.Context, userID uint, amount decimal.Decimal, currency string) (*models.TopUp, error) {
	amount = amount.Round(2)
	if err := s.validate(amount); err != nil {
		return nil, err
	}
	currency = strings.ToUpper(currency)
	if currency == "" {
		currency = s.config.Currency
	}
	if currency != s.config.Currency {
		return nil, apperrors.ErrInvalidAmount.Withf("Unsupported currency %s", currency)
	}

	reference := refcode.Sortable(refcode.PrefixFunding)
	description := fmt.Sprintf("Wallet top-up %s %s", amount.StringFixed(2), currency)
	pi, err := s.processor.CreatePaymentIntent(ctx, processor.PaymentIntentRequest{
		Amount:      amount,
		Currency:    currency,
		Description: description,
		Metadata: map[string]string{
			"user_id":   strconv.FormatUint(uint64(userID), 10),
			"reference": reference,
		},
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}

	// An intent whose local records fail to commit is never handed to the
	// client, so it cannot be confirmed.
	var topUp *models.TopUp
	err = s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		entry, err := s.ledger.CreatePendingTx(ctx, tx, wallet.Delta{
			UserID:      userID,
			Amount:      amount,
			Type:        models.EntryTopUp,
			Reference:   reference,
			Description: description,
			Metadata: models.NewMetadata(models.EntryTopUp, map[string]interface{}{
				models.MetaPaymentIntentID: pi.ID,
				models.MetaCurrency:        currency,
			}),
		})
		if err != nil {
			return err
		}

		topUp = &models.TopUp{
			UserID:          userID,
			PaymentIntentID: pi.ID,
			Amount:          amount,
			Currency:        currency,
			Status:          models.TopUpPending,
			LedgerEntryID:   entry.ID,
		}
		return tx.TopUps().Create(ctx, topUp)
	})
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "amount": amount.StringFixed(2)}).Warn("top-up creation failed")
		return nil, err
	}

	topUp.ClientSecret = pi.ClientSecret
	s.log.WithFields(logrus.Fields{
		"user_id":           userID,
		"topup_id":          topUp.ID,
		"payment_intent_id": topUp.PaymentIntentID,
		"amount":            amount.StringFixed(2),
	}).Info("top-up created")
	return topUp, nil
}

func (s *service) validate(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount.Withf("Top-up amount must be positive")
	}
	if s.config.MinAmount.IsPositive() && amount.LessThan(s.config.MinAmount) {
		return apperrors.ErrInvalidAmount.Withf("Minimum top-up amount is $%s", s.config.MinAmount.StringFixed(2))
	}
	if s.config.MaxAmount.IsPositive() && amount.GreaterThan(s.config.MaxAmount) {
		return apperrors.ErrInvalidAmount.Withf("Maximum top-up amount is $%s", s.config.MaxAmount.StringFixed(2))
	}
	return nil
}

// Get returns the caller's top-up. Other users' top-ups read as not found.
func (s *service) Get(ctx context.Context, userID, topUpID uint) (*models.TopUp, error) {
	topUp, err := s.store.TopUps().GetByID(ctx, topUpID)
	if err != nil {
		if errors.Is(err, repositories.ErrTopUpNotFound) {
			return nil, apperrors.ErrTopUpNotFound
		}
		return nil, err
	}
	if topUp.UserID != userID {
		return nil, apperrors.ErrTopUpNotFound
	}
	return topUp, nil
}

func (s *service) Refresh(ctx context.Context, userID, topUpID uint) (*models.TopUp, error) {
	topUp, err := s.Get(ctx, userID, topUpID)
	if err != nil {
		return nil, err
	}
	if topUp.Status != models.TopUpPending {
		return topUp, nil
	}

	pi, err := s.processor.GetPaymentIntent(ctx, topUp.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	switch pi.Status {
	case processor.PaymentSucceeded:
		return s.complete(ctx, topUp)
	case processor.PaymentCanceled:
		return s.fail(ctx, topUp, "payment canceled")
	default:
		return topUp, nil
	}
}

// HandleEvent resolves the top-up behind a payment intent event. Events
// for intents we did not create are ignored.
func (s *service) HandleEvent(ctx context.Context, evt *processor.Event) (*models.TopUp, error) {
	log := s.log.WithFields(logrus.Fields{"event_id": evt.ID, "event_type": evt.Type})

	switch evt.Type {
	case processor.EventPaymentSucceeded, processor.EventPaymentFailed, processor.EventPaymentCanceled:
	default:
		log.Debug("ignoring payment event")
		return nil, nil
	}
	if evt.PaymentIntent == nil {
		return nil, fmt.Errorf("%w: %s carries no payment intent", processor.ErrMalformedEvent, evt.Type)
	}

	topUp, err := s.store.TopUps().GetByPaymentIntentID(ctx, evt.PaymentIntent.ID)
	if errors.Is(err, repositories.ErrTopUpNotFound) {
		log.WithField("payment_intent_id", evt.PaymentIntent.ID).Warn("payment event for unknown intent")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	switch evt.Type {
	case processor.EventPaymentSucceeded:
		if !evt.PaymentIntent.Amount.Equal(topUp.Amount) {
			log.WithFields(logrus.Fields{
				"topup_id": topUp.ID,
				"expected": topUp.Amount.StringFixed(2),
				"received": evt.PaymentIntent.Amount.StringFixed(2),
			}).Error("payment intent amount differs from top-up, crediting the recorded amount")
		}
		return s.complete(ctx, topUp)
	case processor.EventPaymentCanceled:
		return s.fail(ctx, topUp, "payment canceled")
	default:
		reason := evt.PaymentIntent.FailureReason
		if reason == "" {
			reason = "payment failed"
		}
		return s.fail(ctx, topUp, reason)
	}
}

// complete settles the pending entry and marks the top-up completed in one
// transaction. The conditional status change on the top-up makes a second
// resolution a no-op.
func (s *service) complete(ctx context.Context, topUp *models.TopUp) (*models.TopUp, error) {
	completedAt := s.now().UTC()
	var mutation *wallet.Mutation
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		err := tx.TopUps().Transition(ctx, topUp.ID, models.TopUpPending, models.TopUpCompleted, map[string]interface{}{
			"completed_at": completedAt,
		})
		if err != nil {
			return err
		}
		mutation, err = s.ledger.SettlePendingTx(ctx, tx, topUp.LedgerEntryID)
		return err
	})
	if errors.Is(err, repositories.ErrStatusConflict) || errors.Is(err, wallet.ErrEntryFinalized) {
		return s.store.TopUps().GetByID(ctx, topUp.ID)
	}
	if err != nil {
		s.log.WithError(err).WithField("topup_id", topUp.ID).Error("failed to complete top-up")
		return nil, err
	}

	s.ledger.Committed(ctx, mutation)
	topUp.Status = models.TopUpCompleted
	topUp.CompletedAt = &completedAt

	s.log.WithFields(logrus.Fields{
		"user_id":  topUp.UserID,
		"topup_id": topUp.ID,
		"amount":   topUp.Amount.StringFixed(2),
		"balance":  mutation.Wallet.Balance.StringFixed(2),
	}).Info("top-up completed")
	if err := s.publisher.Publish(ctx, events.New(events.TypeTopUpCompleted, strconv.FormatUint(uint64(topUp.UserID), 10), topUp)); err != nil {
		s.log.WithError(err).WithField("topup_id", topUp.ID).Warn("failed to publish top-up event")
	}
	return topUp, nil
}

func (s *service) fail(ctx context.Context, topUp *models.TopUp, reason string) (*models.TopUp, error) {
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		err := tx.TopUps().Transition(ctx, topUp.ID, models.TopUpPending, models.TopUpFailed, map[string]interface{}{
			"failure_reason": reason,
		})
		if err != nil {
			return err
		}
		return s.ledger.FailPendingTx(ctx, tx, topUp.LedgerEntryID, reason)
	})
	if errors.Is(err, repositories.ErrStatusConflict) || errors.Is(err, wallet.ErrEntryFinalized) {
		return s.store.TopUps().GetByID(ctx, topUp.ID)
	}
	if err != nil {
		return nil, err
	}

	topUp.Status = models.TopUpFailed
	topUp.FailureReason = reason
	s.log.WithFields(logrus.Fields{"topup_id": topUp.ID, "reason": reason}).Warn("top-up failed")
	return topUp, nil
}
