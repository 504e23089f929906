package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"
)

const intervalAllTime = "all_time"

// StripeClient talks to Stripe Issuing and Payment Intents through an
// injected API client, never the package-level stripe.Key.
type StripeClient struct {
	api *client.API
	log logrus.FieldLogger
}

func NewStripeClient(secretKey string, log logrus.FieldLogger) *StripeClient {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StripeClient{
		api: client.New(secretKey, nil),
		log: log.WithField("component", "stripe"),
	}
}

func (c *StripeClient) GetCard(ctx context.Context, cardID string) (*Card, error) {
	params := &stripe.IssuingCardParams{}
	params.Context = ctx
	card, err := c.api.IssuingCards.Get(cardID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get issuing card: %w", err)
	}
	return cardFromStripe(card), nil
}

// SetSpendingLimit sends the limit in the card's own currency; currency is
// only logged.
func (c *StripeClient) SetSpendingLimit(ctx context.Context, cardID string, limit decimal.Decimal, currency, idempotencyKey string) (*Card, error) {
	params := &stripe.IssuingCardParams{
		SpendingControls: &stripe.IssuingCardSpendingControlsParams{
			SpendingLimits: []*stripe.IssuingCardSpendingControlsSpendingLimitParams{
				{
					Amount:   stripe.Int64(ToMinor(limit)),
					Interval: stripe.String(intervalAllTime),
				},
			},
		},
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	card, err := c.api.IssuingCards.Update(cardID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to update card spending limit: %w", err)
	}
	c.log.WithFields(logrus.Fields{"card_id": cardID, "limit": limit.StringFixed(2), "currency": currency}).Info("card spending limit updated")
	return cardFromStripe(card), nil
}

func (c *StripeClient) GetCardholder(ctx context.Context, cardholderID string) (*Cardholder, error) {
	params := &stripe.IssuingCardholderParams{}
	params.Context = ctx
	holder, err := c.api.IssuingCardholders.Get(cardholderID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get cardholder: %w", err)
	}
	return cardholderFromStripe(holder), nil
}

func (c *StripeClient) ApproveAuthorization(ctx context.Context, authorizationID string) error {
	params := &stripe.IssuingAuthorizationApproveParams{}
	params.Context = ctx
	if _, err := c.api.IssuingAuthorizations.Approve(authorizationID, params); err != nil {
		return fmt.Errorf("failed to approve authorization: %w", err)
	}
	return nil
}

func (c *StripeClient) DeclineAuthorization(ctx context.Context, authorizationID string) error {
	params := &stripe.IssuingAuthorizationDeclineParams{}
	params.Context = ctx
	if _, err := c.api.IssuingAuthorizations.Decline(authorizationID, params); err != nil {
		return fmt.Errorf("failed to decline authorization: %w", err)
	}
	return nil
}

func (c *StripeClient) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(ToMinor(req.Amount)),
		Currency:           stripe.String(strings.ToLower(req.Currency)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return paymentIntentFromStripe(pi), nil
}

func (c *StripeClient) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := c.api.PaymentIntents.Get(paymentIntentID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return paymentIntentFromStripe(pi), nil
}

func (c *StripeClient) ParseWebhook(payload []byte, signature, secret string) (*Event, error) {
	evt, err := webhook.ConstructEvent(payload, signature, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return decodeEvent(evt)
}

// decodeEvent maps the event's data object onto the matching domain type.
func decodeEvent(evt stripe.Event) (*Event, error) {
	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil {
		return out, nil
	}
	raw := evt.Data.Raw

	var err error
	switch out.Type {
	case EventAuthorizationRequest, EventAuthorizationCreated:
		var auth stripe.IssuingAuthorization
		if err = json.Unmarshal(raw, &auth); err == nil {
			out.Authorization = authorizationFromStripe(&auth)
		}
	case EventTransactionCreated, EventTransactionUpdated:
		var tx stripe.IssuingTransaction
		if err = json.Unmarshal(raw, &tx); err == nil {
			out.Transaction = transactionFromStripe(&tx)
		}
	case EventCardUpdated:
		var card stripe.IssuingCard
		if err = json.Unmarshal(raw, &card); err == nil {
			out.Card = cardFromStripe(&card)
		}
	case EventCardholderUpdated:
		var holder stripe.IssuingCardholder
		if err = json.Unmarshal(raw, &holder); err == nil {
			out.Cardholder = cardholderFromStripe(&holder)
		}
	case EventPaymentSucceeded, EventPaymentFailed, EventPaymentCanceled:
		var pi stripe.PaymentIntent
		if err = json.Unmarshal(raw, &pi); err == nil {
			out.PaymentIntent = paymentIntentFromStripe(&pi)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, out.Type, err)
	}
	return out, nil
}

func cardFromStripe(card *stripe.IssuingCard) *Card {
	out := &Card{
		ID:            card.ID,
		Status:        string(card.Status),
		Last4:         card.Last4,
		Currency:      strings.ToUpper(string(card.Currency)),
		SpendingLimit: decimal.Zero,
	}
	if card.Cardholder != nil {
		out.CardholderID = card.Cardholder.ID
	}
	if card.SpendingControls != nil {
		for _, l := range card.SpendingControls.SpendingLimits {
			if l != nil && string(l.Interval) == intervalAllTime {
				out.SpendingLimit = FromMinor(l.Amount)
			}
		}
	}
	return out
}

func cardholderFromStripe(holder *stripe.IssuingCardholder) *Cardholder {
	return &Cardholder{
		ID:     holder.ID,
		Name:   holder.Name,
		Email:  holder.Email,
		Status: string(holder.Status),
	}
}

func authorizationFromStripe(auth *stripe.IssuingAuthorization) *Authorization {
	amount := auth.Amount
	if auth.PendingRequest != nil && auth.PendingRequest.Amount > 0 {
		amount = auth.PendingRequest.Amount
	}
	out := &Authorization{
		ID:       auth.ID,
		Amount:   FromMinor(amount),
		Currency: strings.ToUpper(string(auth.Currency)),
		Approved: auth.Approved,
		Status:   string(auth.Status),
	}
	if auth.Card != nil {
		out.CardID = auth.Card.ID
	}
	if auth.MerchantData != nil {
		out.MerchantName = auth.MerchantData.Name
		out.MerchantCategory = string(auth.MerchantData.Category)
	}
	return out
}

func transactionFromStripe(tx *stripe.IssuingTransaction) *Transaction {
	amount := tx.Amount
	if amount < 0 {
		amount = -amount
	}
	out := &Transaction{
		ID:       tx.ID,
		Type:     string(tx.Type),
		Amount:   FromMinor(amount),
		Currency: strings.ToUpper(string(tx.Currency)),
	}
	if tx.Authorization != nil {
		out.AuthorizationID = tx.Authorization.ID
	}
	if tx.Card != nil {
		out.CardID = tx.Card.ID
	}
	if tx.MerchantData != nil {
		out.MerchantName = tx.MerchantData.Name
		out.MerchantCategory = string(tx.MerchantData.Category)
	}
	return out
}

func paymentIntentFromStripe(pi *stripe.PaymentIntent) *PaymentIntent {
	out := &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       FromMinor(pi.Amount),
		Currency:     strings.ToUpper(string(pi.Currency)),
		Metadata:     pi.Metadata,
	}
	if pi.LastPaymentError != nil {
		out.FailureReason = pi.LastPaymentError.Msg
	}
	return out
}
