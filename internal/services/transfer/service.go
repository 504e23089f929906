package transfer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	apperrors "ledgerpay/internal/errors"
	"ledgerpay/internal/events"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/services/identity"
	"ledgerpay/internal/services/wallet"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const opTransfer = "transfer"

// service implements the transfer Service interface.
type service struct {
	store     repositories.Store
	ledger    Ledger
	guard     LimitGuard
	directory Directory
	codes     CodeGenerator
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

// NewService creates a new transfer service instance.
func NewService(
	store repositories.Store,
	ledger Ledger,
	guard LimitGuard,
	directory Directory,
	codes CodeGenerator,
	config Config,
	log logrus.FieldLogger,
	opts ...Option,
) Service {
	if store == nil {
		panic("store is required")
	}
	if ledger == nil {
		panic("ledger is required")
	}
	if guard == nil {
		panic("limit guard is required")
	}
	if directory == nil {
		panic("directory is required")
	}
	if codes == nil {
		panic("code generator is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if config.FeeRate.IsNegative() {
		config.FeeRate = decimal.Zero
	}

	s := &service{
		store:     store,
		ledger:    ledger,
		guard:     guard,
		directory: directory,
		codes:     codes,
		publisher: events.NoopPublisher{},
		metrics:   &wallet.NoopMetricsCollector{},
		config:    config,
		log:       log.WithField("component", "transfer"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fee returns the platform fee for amount: amount times the fee rate,
// rounded to cents, or zero below the fee minimum.
func (s *service) Fee(amount decimal.Decimal) decimal.Decimal {
	if amount.LessThan(s.config.FeeMinAmount) {
		return decimal.Zero
	}
	return amount.Mul(s.config.FeeRate).Round(2)
}

func (s *service) Preview(ctx context.Context, fromUserID, toUserID uint, amount decimal.Decimal) (*Preview, error) {
	preview, _, err := s.validate(ctx, fromUserID, toUserID, amount)
	return preview, err
}

// Execute moves amount from sender to recipient as three legs sharing one
// reference and timestamp: transfer_out, transfer_in and, when the fee is
// positive, a platform_fee debit on the recipient. Either every leg and
// the limit usage commit together or nothing does.
func (s *service) Execute(ctx context.Context, req Request) (*Result, error) {
	start := s.now()
	defer func() { s.metrics.RecordOperationDuration(opTransfer, time.Since(start)) }()

	amount := req.Amount.Round(2)
	preview, sender, err := s.validate(ctx, req.FromUserID, req.ToUserID, amount)
	if err != nil {
		s.metrics.RecordOperationResult(opTransfer, "rejected")
		return nil, err
	}

	code, err := s.codes.GenerateUnique(ctx, s.store.Entries().ReferenceExists)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reference: %w", err)
	}
	executedAt := s.now().UTC()
	from, to := req.FromUserID, req.ToUserID

	var out, in, fee *wallet.Mutation
	err = s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		if err := lockInOrder(ctx, tx, from, to); err != nil {
			return err
		}

		var err error
		out, err = s.ledger.ApplyDeltaTx(ctx, tx, wallet.Delta{
			UserID:      from,
			Amount:      amount.Neg(),
			Type:        models.EntryTransferOut,
			FromUserID:  &from,
			ToUserID:    &to,
			Reference:   code,
			ExecutedAt:  &executedAt,
			Description: fmt.Sprintf("Transfer to %s", preview.RecipientName),
			Metadata: models.NewMetadata(models.EntryTransferOut, map[string]interface{}{
				models.MetaNote:           req.Note,
				models.MetaCounterpartyID: to,
				models.MetaFeeRate:        s.config.FeeRate.String(),
			}),
		})
		if err != nil {
			return err
		}

		in, err = s.ledger.ApplyDeltaTx(ctx, tx, wallet.Delta{
			UserID:      to,
			Amount:      amount,
			Type:        models.EntryTransferIn,
			FromUserID:  &from,
			ToUserID:    &to,
			Reference:   code,
			ExecutedAt:  &executedAt,
			Description: fmt.Sprintf("Transfer from %s", sender),
			Metadata: models.NewMetadata(models.EntryTransferIn, map[string]interface{}{
				models.MetaNote:           req.Note,
				models.MetaCounterpartyID: from,
			}),
		})
		if err != nil {
			return err
		}

		if preview.PlatformFee.IsPositive() {
			fee, err = s.ledger.ApplyDeltaTx(ctx, tx, wallet.Delta{
				UserID:      to,
				Amount:      preview.PlatformFee.Neg(),
				Type:        models.EntryPlatformFee,
				FromUserID:  &to,
				Reference:   code,
				ExecutedAt:  &executedAt,
				Description: fmt.Sprintf("Platform fee (%s)", preview.FeePercentage),
				Metadata: models.NewMetadata(models.EntryPlatformFee, map[string]interface{}{
					models.MetaFeeRate:        s.config.FeeRate.String(),
					models.MetaTransferAmount: amount.StringFixed(2),
					models.MetaCounterpartyID: from,
				}),
			})
			if err != nil {
				return err
			}
		}

		return s.guard.RecordTransfer(ctx, tx, from, amount)
	})
	if err != nil {
		s.metrics.RecordOperationResult(opTransfer, "failed")
		s.log.WithError(err).WithFields(logrus.Fields{
			"from_user_id": from,
			"to_user_id":   to,
			"reference":    code,
		}).Warn("transfer rolled back")
		return nil, err
	}

	s.ledger.Committed(ctx, out, in, fee)

	result := &Result{
		Reference:        code,
		ExecutedAt:       executedAt,
		Preview:          *preview,
		Legs:             []Leg{legOf(out.Entry), legOf(in.Entry)},
		SenderBalance:    out.Wallet.Balance,
		RecipientBalance: in.Wallet.Balance,
	}
	if fee != nil {
		result.Legs = append(result.Legs, legOf(fee.Entry))
		result.RecipientBalance = fee.Wallet.Balance
	}

	s.metrics.RecordOperationResult(opTransfer, "success")
	s.log.WithFields(logrus.Fields{
		"from_user_id": from,
		"to_user_id":   to,
		"amount":       amount.StringFixed(2),
		"fee":          preview.PlatformFee.StringFixed(2),
		"reference":    code,
	}).Info("transfer completed")

	if err := s.publisher.Publish(ctx, events.New(events.TypeTransferCompleted, code, result)); err != nil {
		s.log.WithError(err).WithField("reference", code).Warn("failed to publish transfer event")
	}
	return result, nil
}

// validate runs every check that must pass before money moves and returns
// the fee breakdown plus the sender's display name.
func (s *service) validate(ctx context.Context, fromUserID, toUserID uint, amount decimal.Decimal) (*Preview, string, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, "", apperrors.ErrInvalidAmount.Withf("Transfer amount must be positive")
	}
	if fromUserID == toUserID {
		return nil, "", apperrors.ErrSelfTransfer
	}

	recipient, err := s.directory.Lookup(ctx, toUserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, "", apperrors.ErrRecipientNotFound
		}
		return nil, "", err
	}
	// A deactivated recipient wallet cannot take the credit leg.
	rw, err := s.store.Wallets().GetByUserID(ctx, toUserID)
	switch {
	case err == nil && !rw.Active:
		return nil, "", apperrors.ErrRecipientWalletInactive
	case err != nil && !errors.Is(err, repositories.ErrWalletNotFound):
		return nil, "", err
	}

	available := decimal.Zero
	w, err := s.ledger.GetWallet(ctx, fromUserID)
	switch {
	case err == nil:
		available = w.Available()
	case !errors.Is(err, apperrors.ErrWalletNotFound):
		return nil, "", err
	}
	if available.LessThan(amount) {
		return nil, "", apperrors.ErrInsufficientBalance.Withf("Insufficient balance. Available: $%s, Requested: $%s",
			available.StringFixed(2), amount.StringFixed(2))
	}

	decision, err := s.guard.CheckTransferAllowed(ctx, fromUserID, amount)
	if err != nil {
		return nil, "", err
	}
	if !decision.Allowed {
		return nil, "", apperrors.ErrLimitExceeded.Withf("%s", decision.Reason)
	}

	senderName := fmt.Sprintf("user #%d", fromUserID)
	if sender, err := s.directory.Lookup(ctx, fromUserID); err == nil {
		senderName = sender.Name
	}

	fee := s.Fee(amount)
	return &Preview{
		RecipientID:        recipient.ID,
		RecipientName:      recipient.Name,
		AmountSent:         amount,
		AmountReceived:     amount,
		PlatformFee:        fee,
		RecipientNetAmount: amount.Sub(fee),
		FeePercentage:      s.config.FeeRate.Mul(decimal.NewFromInt(100)).String() + "%",
	}, senderName, nil
}

// lockInOrder takes the wallet row locks of both parties, lower user id
// first. A missing recipient wallet is skipped; the credit leg creates it.
func lockInOrder(ctx context.Context, tx repositories.Store, a, b uint) error {
	ids := []uint{a, b}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if _, err := tx.Wallets().GetByUserIDForUpdate(ctx, id); err != nil && !errors.Is(err, repositories.ErrWalletNotFound) {
			return err
		}
	}
	return nil
}
