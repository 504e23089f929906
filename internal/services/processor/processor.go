// Package processor is the boundary to the external card issuing and
// payments provider. Services depend on Client; Stripe is the production
// implementation.
package processor

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Webhook event types the ledger reacts to.
const (
	EventAuthorizationRequest = "issuing_authorization.request"
	EventAuthorizationCreated = "issuing_authorization.created"
	EventTransactionCreated   = "issuing_transaction.created"
	EventTransactionUpdated   = "issuing_transaction.updated"
	EventCardUpdated          = "issuing_card.updated"
	EventCardholderUpdated    = "issuing_cardholder.updated"
	EventPaymentSucceeded     = "payment_intent.succeeded"
	EventPaymentFailed        = "payment_intent.payment_failed"
	EventPaymentCanceled      = "payment_intent.canceled"
)

// Payment intent statuses as reported by the provider.
const (
	PaymentSucceeded = "succeeded"
	PaymentCanceled  = "canceled"
	// PaymentRequiresMethod after a failed attempt means the intent failed.
	PaymentRequiresMethod = "requires_payment_method"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook event")
)

type Card struct {
	ID            string
	CardholderID  string
	Status        string
	Last4         string
	Currency      string
	SpendingLimit decimal.Decimal
}

type Cardholder struct {
	ID     string
	Name   string
	Email  string
	Status string
}

type Authorization struct {
	ID               string
	CardID           string
	Amount           decimal.Decimal
	Currency         string
	MerchantName     string
	MerchantCategory string
	Approved         bool
	Status           string
}

// Transaction is a settled movement on a card. Amount is always positive;
// Type tells capture from refund.
type Transaction struct {
	ID               string
	AuthorizationID  string
	CardID           string
	Type             string
	Amount           decimal.Decimal
	Currency         string
	MerchantName     string
	MerchantCategory string
}

type PaymentIntent struct {
	ID            string
	ClientSecret  string
	Status        string
	Amount        decimal.Decimal
	Currency      string
	FailureReason string
	Metadata      map[string]string
}

type PaymentIntentRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// Event is a verified webhook. Exactly one of the object fields is set,
// matching Type; unknown types carry none.
type Event struct {
	ID            string
	Type          string
	Authorization *Authorization
	Transaction   *Transaction
	Card          *Card
	Cardholder    *Cardholder
	PaymentIntent *PaymentIntent
}

// Client is everything the ledger asks of the provider.
type Client interface {
	GetCard(ctx context.Context, cardID string) (*Card, error)
	// SetSpendingLimit replaces the card's all-time spending limit.
	SetSpendingLimit(ctx context.Context, cardID string, limit decimal.Decimal, currency, idempotencyKey string) (*Card, error)
	GetCardholder(ctx context.Context, cardholderID string) (*Cardholder, error)

	ApproveAuthorization(ctx context.Context, authorizationID string) error
	DeclineAuthorization(ctx context.Context, authorizationID string) error

	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error)

	// ParseWebhook verifies signature against secret and decodes payload.
	ParseWebhook(payload []byte, signature, secret string) (*Event, error)
}

// ToMinor converts an amount to integer cents.
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromMinor converts integer cents to an amount.
func FromMinor(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
