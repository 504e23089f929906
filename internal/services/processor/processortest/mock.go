// Package processortest provides a testify mock of processor.Client.
package processortest

import (
	"context"

	"ledgerpay/internal/services/processor"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

var _ processor.Client = (*MockClient)(nil)

func (m *MockClient) GetCard(ctx context.Context, cardID string) (*processor.Card, error) {
	args := m.Called(ctx, cardID)
	card, _ := args.Get(0).(*processor.Card)
	return card, args.Error(1)
}

func (m *MockClient) SetSpendingLimit(ctx context.Context, cardID string, limit decimal.Decimal, currency, idempotencyKey string) (*processor.Card, error) {
	args := m.Called(ctx, cardID, limit, currency, idempotencyKey)
	card, _ := args.Get(0).(*processor.Card)
	return card, args.Error(1)
}

func (m *MockClient) GetCardholder(ctx context.Context, cardholderID string) (*processor.Cardholder, error) {
	args := m.Called(ctx, cardholderID)
	holder, _ := args.Get(0).(*processor.Cardholder)
	return holder, args.Error(1)
}

func (m *MockClient) ApproveAuthorization(ctx context.Context, authorizationID string) error {
	return m.Called(ctx, authorizationID).Error(0)
}

func (m *MockClient) DeclineAuthorization(ctx context.Context, authorizationID string) error {
	return m.Called(ctx, authorizationID).Error(0)
}

func (m *MockClient) CreatePaymentIntent(ctx context.Context, req processor.PaymentIntentRequest) (*processor.PaymentIntent, error) {
	args := m.Called(ctx, req)
	pi, _ := args.Get(0).(*processor.PaymentIntent)
	return pi, args.Error(1)
}

func (m *MockClient) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*processor.PaymentIntent, error) {
	args := m.Called(ctx, paymentIntentID)
	pi, _ := args.Get(0).(*processor.PaymentIntent)
	return pi, args.Error(1)
}

func (m *MockClient) ParseWebhook(payload []byte, signature, secret string) (*processor.Event, error) {
	args := m.Called(payload, signature, secret)
	evt, _ := args.Get(0).(*processor.Event)
	return evt, args.Error(1)
}
