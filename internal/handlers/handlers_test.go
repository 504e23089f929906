package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledgerpay/internal/events"
	"ledgerpay/internal/handlers"
	"ledgerpay/internal/logger"
	"ledgerpay/internal/middleware"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/routes"
	"ledgerpay/internal/services/funding"
	"ledgerpay/internal/services/identity"
	"ledgerpay/internal/services/limits"
	"ledgerpay/internal/services/processor"
	"ledgerpay/internal/services/processor/processortest"
	"ledgerpay/internal/services/refcode"
	"ledgerpay/internal/services/topup"
	"ledgerpay/internal/services/transfer"
	"ledgerpay/internal/services/wallet"
	"ledgerpay/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "handler-test-secret"

type apiEnv struct {
	app    *fiber.App
	db     *gorm.DB
	client *processortest.MockClient
	alice  *models.User
	bob    *models.User
	admin  *models.User
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	db := testutil.NewDB(t)
	log := logger.Discard()
	store := repositories.NewStore(db)
	rec := &events.Recorder{}
	client := &processortest.MockClient{}

	users := identity.NewService(repositories.NewUserRepository(db, nil))
	ledger := wallet.NewService(store, wallet.WalletConfig{}, log, wallet.WithPublisher(rec))
	guard := limits.NewGuard(store, limits.DefaultConfig(), log)
	transfers := transfer.NewService(store, ledger, guard, users, refcode.New("TRX", log), transfer.Config{}, log)
	cards := funding.NewService(store, ledger, client, funding.Config{Currency: "usd"}, log)
	topups := topup.NewService(store, ledger, client, topup.Config{
		Currency:  "usd",
		MinAmount: decimal.NewFromInt(1),
		MaxAmount: decimal.NewFromInt(500),
	}, log)

	app := fiber.New()
	routes.SetupRoutes(app, routes.Handlers{
		Auth:     middleware.NewAuthMiddleware(testSecret, users, log),
		Health:   handlers.Health(db, nil),
		Wallet:   handlers.NewWalletHandler(ledger, log),
		Transfer: handlers.NewTransferHandler(transfers, guard, log),
		Card:     handlers.NewCardHandler(cards, log),
		TopUp:    handlers.NewTopUpHandler(topups, log),
		Admin:    handlers.NewAdminHandler(ledger, transfers, guard, log),
		Webhook:  handlers.NewWebhookHandler(client, cards, topups, "whsec_issuing", "whsec_payments", log),
	})

	env := &apiEnv{
		app:    app,
		db:     db,
		client: client,
		alice:  testutil.CreateUser(t, db, "alice"),
		bob:    testutil.CreateUser(t, db, "bob"),
		admin:  testutil.CreateUser(t, db, "root"),
	}
	require.NoError(t, db.Model(env.admin).Update("role", models.RoleAdmin).Error)
	env.admin.Role = models.RoleAdmin
	return env
}

func (e *apiEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := middleware.IssueToken([]byte(testSecret), user, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *apiEnv) do(t *testing.T, method, path string, user *models.User, body interface{}) (int, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(t, user))
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]json.RawMessage{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func decode(t *testing.T, raw json.RawMessage, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, dest))
}

func TestAuthMiddleware(t *testing.T) {
	env := newAPIEnv(t)

	t.Run("missing header", func(t *testing.T) {
		status, _ := env.do(t, http.MethodGet, "/api/wallet", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/wallet", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		resp, err := env.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("revoked session", func(t *testing.T) {
		token := env.token(t, env.alice)
		require.NoError(t, env.db.Model(env.alice).Update("token_version", 2).Error)
		t.Cleanup(func() { env.db.Model(env.alice).Update("token_version", 1) })

		req := httptest.NewRequest(http.MethodGet, "/api/wallet", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := env.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("admin routes reject users", func(t *testing.T) {
		status, _ := env.do(t, http.MethodGet, "/api/admin/ledger/stats", env.alice, nil)
		assert.Equal(t, http.StatusForbidden, status)
	})
}

func TestWalletCreatedOnFirstRead(t *testing.T) {
	env := newAPIEnv(t)

	status, body := env.do(t, http.MethodGet, "/api/wallet", env.alice, nil)
	require.Equal(t, http.StatusOK, status)

	var w models.Wallet
	decode(t, body["data"], &w)
	assert.Equal(t, env.alice.ID, w.UserID)
	assert.True(t, w.Balance.IsZero())
	assert.True(t, w.Active)
}

func TestTransferFlow(t *testing.T) {
	env := newAPIEnv(t)

	status, _ := env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/wallets/%d/mint", env.alice.ID), env.admin,
		map[string]interface{}{"amount": "100", "reason": "opening balance"})
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodGet, "/api/wallet", env.bob, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodPost, "/api/transfers/preview", env.alice,
		map[string]interface{}{"to_user_id": env.bob.ID, "amount": "40"})
	require.Equal(t, http.StatusOK, status)
	var preview transfer.Preview
	decode(t, body["data"], &preview)
	assert.True(t, preview.AmountSent.Equal(decimal.NewFromInt(40)))

	status, body = env.do(t, http.MethodPost, "/api/transfers", env.alice,
		map[string]interface{}{"to_user_id": env.bob.ID, "amount": "40", "note": "lunch"})
	require.Equal(t, http.StatusCreated, status)
	var result transfer.Result
	decode(t, body["data"], &result)
	assert.True(t, result.SenderBalance.Equal(decimal.NewFromInt(60)))
	assert.Regexp(t, `^TRX-[A-Z2-9]{6}$`, result.Reference)

	status, _ = env.do(t, http.MethodGet, "/api/transfers/verify/"+result.Reference, env.bob, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodGet, "/api/transfers/verify/"+result.Reference, env.admin, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodGet, "/api/admin/transfers/verify/"+result.Reference, env.admin, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestDomainErrorsMapToStatus(t *testing.T) {
	env := newAPIEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{
			name:   "insufficient balance",
			method: http.MethodPost,
			path:   "/api/transfers",
			body:   map[string]interface{}{"to_user_id": env.bob.ID, "amount": "5"},
			status: http.StatusUnprocessableEntity,
			code:   "INSUFFICIENT_BALANCE",
		},
		{
			name:   "self transfer",
			method: http.MethodPost,
			path:   "/api/transfers/preview",
			body:   map[string]interface{}{"to_user_id": env.alice.ID, "amount": "5"},
			status: http.StatusBadRequest,
			code:   "SELF_TRANSFER",
		},
		{
			name:   "unknown reference",
			method: http.MethodGet,
			path:   "/api/transfers/verify/TRX-AAAAAA",
			status: http.StatusNotFound,
			code:   "REFERENCE_NOT_FOUND",
		},
		{
			name:   "unknown top-up",
			method: http.MethodGet,
			path:   "/api/topups/999",
			status: http.StatusNotFound,
			code:   "TOPUP_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _ = env.do(t, http.MethodGet, "/api/wallet", env.alice, nil)

			status, body := env.do(t, tt.method, tt.path, env.alice, tt.body)
			assert.Equal(t, tt.status, status)

			var code string
			decode(t, body["code"], &code)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestInvalidParams(t *testing.T) {
	env := newAPIEnv(t)

	status, _ := env.do(t, http.MethodPost, "/api/cards/abc/fund", env.alice, map[string]interface{}{"amount": "5"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/admin/wallets/0/reward", env.admin, map[string]interface{}{"amount": "5"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRequestValidation(t *testing.T) {
	env := newAPIEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/cards/link", env.alice,
		map[string]interface{}{"processor_card_id": "not-a-card"})
	assert.Equal(t, http.StatusBadRequest, status)
	var fields map[string]string
	decode(t, body["fields"], &fields)
	assert.Contains(t, fields, "processor_card_id")

	status, _ = env.do(t, http.MethodPost, "/api/transfers", env.alice,
		map[string]interface{}{"amount": "5"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/wallets/%d/purchase", env.alice.ID), env.admin,
		map[string]interface{}{"amount": "5"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestWebhookSignature(t *testing.T) {
	env := newAPIEnv(t)
	env.client.On("ParseWebhook", mock.Anything, "bad", "whsec_payments").
		Return(nil, processor.ErrInvalidSignature)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe/payments", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "bad")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIssuingWebhookAnswersAuthorization(t *testing.T) {
	env := newAPIEnv(t)
	evt := &processor.Event{
		ID:   "evt_1",
		Type: processor.EventAuthorizationRequest,
		Authorization: &processor.Authorization{
			ID:       "iauth_1",
			CardID:   "ic_unknown",
			Amount:   decimal.NewFromInt(12),
			Currency: "usd",
		},
	}
	env.client.On("ParseWebhook", mock.Anything, "sig", "whsec_issuing").Return(evt, nil)
	env.client.On("DeclineAuthorization", mock.Anything, "iauth_1").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe/issuing", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "sig")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Received bool  `json:"received"`
		Handled  bool  `json:"handled"`
		Approved *bool `json:"approved"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Received)
	assert.True(t, body.Handled)
	require.NotNil(t, body.Approved)
	assert.False(t, *body.Approved)
	env.client.AssertExpectations(t)
}

type webhookAck struct {
	Received bool  `json:"received"`
	Handled  bool  `json:"handled"`
	Approved *bool `json:"approved"`
}

func (e *apiEnv) deliver(t *testing.T, path, secret string, evt *processor.Event) (int, webhookAck) {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{"id":%q}`, evt.ID))
	e.client.On("ParseWebhook", payload, "sig", secret).Return(evt, nil).Once()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "sig")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var ack webhookAck
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	return resp.StatusCode, ack
}

func TestIssuingWebhookAcknowledgesFailures(t *testing.T) {
	t.Run("decline call fails", func(t *testing.T) {
		env := newAPIEnv(t)
		env.client.On("DeclineAuthorization", mock.Anything, "iauth_2").Return(errors.New("processor timeout")).Once()

		status, ack := env.deliver(t, "/webhooks/stripe/issuing", "whsec_issuing", &processor.Event{
			ID:   "evt_decline",
			Type: processor.EventAuthorizationRequest,
			Authorization: &processor.Authorization{
				ID:     "iauth_2",
				CardID: "ic_unknown",
				Amount: decimal.NewFromInt(5),
			},
		})
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, ack.Received)
		assert.False(t, ack.Handled)
		assert.Nil(t, ack.Approved)
		env.client.AssertExpectations(t)
	})

	t.Run("card refetch fails", func(t *testing.T) {
		env := newAPIEnv(t)
		env.client.On("GetCard", mock.Anything, "ic_gone").Return(nil, errors.New("processor unavailable")).Once()

		status, ack := env.deliver(t, "/webhooks/stripe/issuing", "whsec_issuing", &processor.Event{
			ID:   "evt_card",
			Type: processor.EventCardUpdated,
			Card: &processor.Card{ID: "ic_gone"},
		})
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, ack.Received)
		assert.False(t, ack.Handled)
		env.client.AssertExpectations(t)
	})
}

func TestPaymentsWebhookAcknowledgesFailures(t *testing.T) {
	env := newAPIEnv(t)
	require.NoError(t, env.db.Migrator().DropTable(&models.TopUp{}))

	status, ack := env.deliver(t, "/webhooks/stripe/payments", "whsec_payments", &processor.Event{
		ID:   "evt_paid",
		Type: processor.EventPaymentSucceeded,
		PaymentIntent: &processor.PaymentIntent{
			ID:     "pi_1",
			Status: "succeeded",
			Amount: decimal.NewFromInt(20),
		},
	})
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, ack.Received)
	assert.False(t, ack.Handled)

	status, ack = env.deliver(t, "/webhooks/stripe/payments", "whsec_payments", &processor.Event{
		ID:   "evt_empty",
		Type: processor.EventPaymentFailed,
	})
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, ack.Handled)
	env.client.AssertExpectations(t)
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t)

	status, body := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	var state string
	decode(t, body["status"], &state)
	assert.Equal(t, "ok", state)
}
