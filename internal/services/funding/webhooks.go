package funding

import (
	"context"
	"errors"
	"fmt"

	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/services/processor"

	"github.com/sirupsen/logrus"
)

// HandleEvent routes a verified issuing event. Unknown event types are
// acknowledged without effect.
func (s *service) HandleEvent(ctx context.Context, evt *processor.Event) (*WebhookResult, error) {
	result := &WebhookResult{EventType: evt.Type}
	log := s.log.WithFields(logrus.Fields{"event_id": evt.ID, "event_type": evt.Type})

	var err error
	switch evt.Type {
	case processor.EventAuthorizationRequest:
		if evt.Authorization == nil {
			return nil, malformed(evt)
		}
		var approved bool
		approved, err = s.HandleAuthorizationRequest(ctx, evt.Authorization)
		result.Approved = &approved
	case processor.EventAuthorizationCreated:
		if evt.Authorization == nil {
			return nil, malformed(evt)
		}
		result.Transaction, err = s.RecordAuthorization(ctx, evt.Authorization)
	case processor.EventTransactionCreated:
		if evt.Transaction == nil {
			return nil, malformed(evt)
		}
		result.Transaction, err = s.RecordTransaction(ctx, evt.Transaction)
	case processor.EventTransactionUpdated:
		if evt.Transaction == nil {
			return nil, malformed(evt)
		}
		result.Transaction, err = s.UpdateTransaction(ctx, evt.Transaction)
	case processor.EventCardUpdated:
		if evt.Card == nil {
			return nil, malformed(evt)
		}
		err = s.SyncCardStatus(ctx, evt.Card.ID)
	case processor.EventCardholderUpdated:
		if evt.Cardholder == nil {
			return nil, malformed(evt)
		}
		err = s.SyncCardholderStatus(ctx, evt.Cardholder.ID)
	default:
		log.Debug("ignoring issuing event")
		return result, nil
	}
	if err != nil {
		log.WithError(err).Error("failed to handle issuing event")
		return nil, err
	}
	result.Handled = true
	log.Info("issuing event handled")
	return result, nil
}

func malformed(evt *processor.Event) error {
	return fmt.Errorf("%w: %s carries no object", processor.ErrMalformedEvent, evt.Type)
}

// HandleAuthorizationRequest approves a real-time authorization only when
// the card is known and active. The processor enforces the spending limit
// itself.
func (s *service) HandleAuthorizationRequest(ctx context.Context, auth *processor.Authorization) (bool, error) {
	log := s.log.WithFields(logrus.Fields{"authorization_id": auth.ID, "processor_card_id": auth.CardID})

	card, err := s.store.Cards().GetCardByProcessorID(ctx, auth.CardID)
	if err != nil && !errors.Is(err, repositories.ErrCardNotFound) {
		return false, err
	}
	if card == nil || card.Status != models.CardStatusActive {
		log.Warn("declining authorization for unknown or inactive card")
		if err := s.processor.DeclineAuthorization(ctx, auth.ID); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := s.processor.ApproveAuthorization(ctx, auth.ID); err != nil {
		return false, err
	}
	log.WithField("amount", auth.Amount.StringFixed(2)).Info("authorization approved")
	return true, nil
}

// RecordAuthorization stores an authorization once per processor id.
// Authorizations for cards we do not know are logged and skipped.
func (s *service) RecordAuthorization(ctx context.Context, auth *processor.Authorization) (*models.CardTransaction, error) {
	card, err := s.cardFor(ctx, auth.CardID)
	if card == nil || err != nil {
		return nil, err
	}

	authID := auth.ID
	row := &models.CardTransaction{
		CardID:                   card.ID,
		UserID:                   card.UserID,
		Type:                     models.CardTxAuthorization,
		Status:                   models.CardTxApproved,
		Amount:                   auth.Amount,
		Currency:                 currencyOr(auth.Currency, card.Currency),
		MerchantName:             auth.MerchantName,
		MerchantCategory:         auth.MerchantCategory,
		ProcessorAuthorizationID: &authID,
		Metadata:                 models.JSON{"processor_status": auth.Status},
	}
	if !auth.Approved {
		row.Status = models.CardTxDeclined
		row.DeclineReason = "declined"
	}

	created, err := s.store.Cards().CreateTransaction(ctx, row)
	if err != nil {
		return nil, err
	}
	if !created {
		return s.store.Cards().GetTransactionByAuthorizationID(ctx, authID)
	}
	return row, nil
}

// RecordTransaction stores a settled capture or refund once per processor
// id, linked to its authorization.
func (s *service) RecordTransaction(ctx context.Context, ptx *processor.Transaction) (*models.CardTransaction, error) {
	card, err := s.cardFor(ctx, ptx.CardID)
	if card == nil || err != nil {
		return nil, err
	}

	txID := ptx.ID
	row := &models.CardTransaction{
		CardID:                 card.ID,
		UserID:                 card.UserID,
		Type:                   models.CardTxCapture,
		Status:                 models.CardTxSettled,
		Amount:                 ptx.Amount,
		Currency:               currencyOr(ptx.Currency, card.Currency),
		MerchantName:           ptx.MerchantName,
		MerchantCategory:       ptx.MerchantCategory,
		ProcessorTransactionID: &txID,
		LinkedAuthorizationID:  ptx.AuthorizationID,
	}
	if ptx.Type == models.CardTxRefund {
		row.Type = models.CardTxRefund
		row.Status = models.CardTxReversed
	}

	created, err := s.store.Cards().CreateTransaction(ctx, row)
	if err != nil {
		return nil, err
	}
	if !created {
		return s.store.Cards().GetTransactionByProcessorID(ctx, txID)
	}
	return row, nil
}

// UpdateTransaction refreshes a stored transaction, recording it first if
// the created event was never seen. Refunds are marked reversed.
func (s *service) UpdateTransaction(ctx context.Context, ptx *processor.Transaction) (*models.CardTransaction, error) {
	row, err := s.store.Cards().GetTransactionByProcessorID(ctx, ptx.ID)
	if errors.Is(err, repositories.ErrCardTransactionNotFound) {
		return s.RecordTransaction(ctx, ptx)
	}
	if err != nil {
		return nil, err
	}

	row.Amount = ptx.Amount
	if ptx.MerchantName != "" {
		row.MerchantName = ptx.MerchantName
	}
	if ptx.MerchantCategory != "" {
		row.MerchantCategory = ptx.MerchantCategory
	}
	if ptx.Type == models.CardTxRefund {
		row.Type = models.CardTxRefund
		row.Status = models.CardTxReversed
	}
	row.UpdatedAt = s.now().UTC()
	if err := s.store.Cards().UpdateTransaction(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// SyncCardStatus re-reads the card from the processor and overwrites the
// local status. Event payloads are not trusted for this.
func (s *service) SyncCardStatus(ctx context.Context, processorCardID string) error {
	remote, err := s.processor.GetCard(ctx, processorCardID)
	if err != nil {
		return err
	}
	status := localCardStatus(remote.Status)
	if err := s.store.Cards().UpdateCardStatus(ctx, processorCardID, status); err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			s.log.WithField("processor_card_id", processorCardID).Warn("card update for unknown card")
			return nil
		}
		return err
	}
	s.log.WithFields(logrus.Fields{"processor_card_id": processorCardID, "status": status}).Info("card status synced")
	return nil
}

func (s *service) SyncCardholderStatus(ctx context.Context, processorCardholderID string) error {
	remote, err := s.processor.GetCardholder(ctx, processorCardholderID)
	if err != nil {
		return err
	}
	status := localCardholderStatus(remote.Status)
	if err := s.store.Cards().UpdateCardholderStatus(ctx, processorCardholderID, status); err != nil {
		if errors.Is(err, repositories.ErrCardholderNotFound) {
			s.log.WithField("processor_cardholder_id", processorCardholderID).Warn("cardholder update for unknown cardholder")
			return nil
		}
		return err
	}
	return nil
}

// cardFor returns nil without error when the processor card is unknown.
func (s *service) cardFor(ctx context.Context, processorCardID string) (*models.Card, error) {
	card, err := s.store.Cards().GetCardByProcessorID(ctx, processorCardID)
	if errors.Is(err, repositories.ErrCardNotFound) {
		s.log.WithField("processor_card_id", processorCardID).Warn("issuing event for unknown card")
		return nil, nil
	}
	return card, err
}

func currencyOr(currency, fallback string) string {
	if currency == "" {
		return fallback
	}
	return currency
}
