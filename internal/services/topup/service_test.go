package topup_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	apperrors "ledgerpay/internal/errors"
	"ledgerpay/internal/events"
	"ledgerpay/internal/logger"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/services/processor"
	"ledgerpay/internal/services/processor/processortest"
	"ledgerpay/internal/services/topup"
	"ledgerpay/internal/services/wallet"
	"ledgerpay/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type env struct {
	svc    topup.Service
	store  repositories.Store
	client *processortest.MockClient
	events *events.Recorder
	user   *models.User
	other  *models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.Discard()
	db := testutil.NewDB(t)
	store := repositories.NewStore(db)
	client := &processortest.MockClient{}
	rec := &events.Recorder{}

	cfg := topup.Config{Currency: "usd", MinAmount: dec("1"), MaxAmount: dec("500")}
	return &env{
		svc:    topup.NewService(store, wallet.NewService(store, wallet.WalletConfig{}, log), client, cfg, log, topup.WithPublisher(rec)),
		store:  store,
		client: client,
		events: rec,
		user:   testutil.CreateUser(t, db, "fran"),
		other:  testutil.CreateUser(t, db, "gus"),
	}
}

func (e *env) create(t *testing.T, piID, amount string) *models.TopUp {
	t.Helper()
	e.client.On("CreatePaymentIntent", mock.Anything, mock.MatchedBy(func(req processor.PaymentIntentRequest) bool {
		return req.Amount.Equal(dec(amount)) && req.IdempotencyKey != ""
	})).Return(&processor.PaymentIntent{ID: piID, ClientSecret: piID + "_secret", Status: "requires_payment_method"}, nil).Once()

	topUp, err := e.svc.Create(context.Background(), e.user.ID, dec(amount), "")
	require.NoError(t, err)
	return topUp
}

func (e *env) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	w, err := e.store.Wallets().GetByUserID(context.Background(), e.user.ID)
	require.NoError(t, err)
	return w.Balance
}

func (e *env) entry(t *testing.T, topUp *models.TopUp) *models.LedgerEntry {
	t.Helper()
	entry, err := e.store.Entries().GetByID(context.Background(), topUp.LedgerEntryID)
	require.NoError(t, err)
	return entry
}

func succeeded(piID, amount string) *processor.Event {
	return &processor.Event{
		ID:            "evt_" + piID,
		Type:          processor.EventPaymentSucceeded,
		PaymentIntent: &processor.PaymentIntent{ID: piID, Status: processor.PaymentSucceeded, Amount: dec(amount)},
	}
}

func TestCreate_RecordsPendingEntry(t *testing.T) {
	e := newEnv(t)
	topUp := e.create(t, "pi_1", "25")

	assert.Equal(t, models.TopUpPending, topUp.Status)
	assert.Equal(t, "pi_1_secret", topUp.ClientSecret)
	assert.Equal(t, "USD", topUp.Currency)

	entry := e.entry(t, topUp)
	assert.Equal(t, models.EntryPending, entry.Status)
	assert.Equal(t, models.EntryTopUp, entry.Type)
	assert.Equal(t, "pi_1", entry.Metadata.String(models.MetaPaymentIntentID))
	assert.True(t, e.balance(t).IsZero())
}

func TestCreate_Rejections(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name     string
		amount   string
		currency string
	}{
		{"zero", "0", ""},
		{"below minimum", "0.50", ""},
		{"above maximum", "501", ""},
		{"other currency", "10", "eur"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Create(context.Background(), e.user.ID, dec(tt.amount), tt.currency)
			assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
		})
	}
	e.client.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything)
}

func TestCreate_ProcessorFailureWritesNothing(t *testing.T) {
	e := newEnv(t)
	e.client.On("CreatePaymentIntent", mock.Anything, mock.Anything).Return(nil, errors.New("stripe unavailable")).Once()

	_, err := e.svc.Create(context.Background(), e.user.ID, dec("10"), "usd")
	require.Error(t, err)

	_, err = e.store.TopUps().GetByPaymentIntentID(context.Background(), "")
	assert.ErrorIs(t, err, repositories.ErrTopUpNotFound)
}

func TestHandleEvent_SuccessCreditsOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	topUp := e.create(t, "pi_2", "40")

	for i := 0; i < 3; i++ {
		got, err := e.svc.HandleEvent(ctx, succeeded("pi_2", "40"))
		require.NoError(t, err)
		assert.Equal(t, models.TopUpCompleted, got.Status)
	}

	assert.True(t, e.balance(t).Equal(dec("40")))
	entry := e.entry(t, topUp)
	assert.Equal(t, models.EntryCompleted, entry.Status)
	require.NotNil(t, entry.ExecutedAt)
	assert.Len(t, e.events.OfType(events.TypeTopUpCompleted), 1)
}

func TestHandleEvent_ConcurrentDeliveriesCreditOnce(t *testing.T) {
	e := newEnv(t)
	e.create(t, "pi_3", "15")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.svc.HandleEvent(context.Background(), succeeded("pi_3", "15"))
		}()
	}
	wg.Wait()

	assert.True(t, e.balance(t).Equal(dec("15")))
}

func TestHandleEvent_FailureLeavesBalance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	topUp := e.create(t, "pi_4", "20")

	got, err := e.svc.HandleEvent(ctx, &processor.Event{
		Type:          processor.EventPaymentFailed,
		PaymentIntent: &processor.PaymentIntent{ID: "pi_4", FailureReason: "card_declined"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.TopUpFailed, got.Status)
	assert.Equal(t, "card_declined", got.FailureReason)

	entry := e.entry(t, topUp)
	assert.Equal(t, models.EntryFailed, entry.Status)
	assert.Equal(t, "card_declined", entry.Metadata.String("failure_reason"))

	// A late success must not resurrect a failed top-up.
	got, err = e.svc.HandleEvent(ctx, succeeded("pi_4", "20"))
	require.NoError(t, err)
	assert.Equal(t, models.TopUpFailed, got.Status)
	assert.True(t, e.balance(t).IsZero())
}

func TestHandleEvent_UnknownIntentAndOtherTypes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	got, err := e.svc.HandleEvent(ctx, succeeded("pi_nobody", "5"))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = e.svc.HandleEvent(ctx, &processor.Event{Type: "charge.refunded"})
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = e.svc.HandleEvent(ctx, &processor.Event{Type: processor.EventPaymentSucceeded})
	assert.ErrorIs(t, err, processor.ErrMalformedEvent)
}

func TestRefresh(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	topUp := e.create(t, "pi_5", "30")

	e.client.On("GetPaymentIntent", mock.Anything, "pi_5").
		Return(&processor.PaymentIntent{ID: "pi_5", Status: "processing"}, nil).Once()
	got, err := e.svc.Refresh(ctx, e.user.ID, topUp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopUpPending, got.Status)

	e.client.On("GetPaymentIntent", mock.Anything, "pi_5").
		Return(&processor.PaymentIntent{ID: "pi_5", Status: processor.PaymentSucceeded}, nil).Once()
	got, err = e.svc.Refresh(ctx, e.user.ID, topUp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopUpCompleted, got.Status)
	assert.True(t, e.balance(t).Equal(dec("30")))

	// Completed top-ups are answered locally and the webhook is a no-op.
	got, err = e.svc.Refresh(ctx, e.user.ID, topUp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopUpCompleted, got.Status)
	_, err = e.svc.HandleEvent(ctx, succeeded("pi_5", "30"))
	require.NoError(t, err)
	assert.True(t, e.balance(t).Equal(dec("30")))
	e.client.AssertExpectations(t)

	_, err = e.svc.Refresh(ctx, e.other.ID, topUp.ID)
	assert.ErrorIs(t, err, apperrors.ErrTopUpNotFound)
}
