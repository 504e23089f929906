package transfer_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	apperrors "ledgerpay/internal/errors"
	"ledgerpay/internal/events"
	"ledgerpay/internal/logger"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/services/identity"
	"ledgerpay/internal/services/limits"
	"ledgerpay/internal/services/refcode"
	"ledgerpay/internal/services/transfer"
	"ledgerpay/internal/services/wallet"
	"ledgerpay/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type env struct {
	svc    transfer.Service
	store  repositories.Store
	ledger wallet.Service
	events *events.Recorder
	alice  *models.User
	bob    *models.User
	carol  *models.User
}

// failingLedger fails every leg of the given type.
type failingLedger struct {
	wallet.Service
	failOn models.EntryType
}

func (f *failingLedger) ApplyDeltaTx(ctx context.Context, tx repositories.Store, d wallet.Delta) (*wallet.Mutation, error) {
	if d.Type == f.failOn {
		return nil, errors.New("injected failure")
	}
	return f.Service.ApplyDeltaTx(ctx, tx, d)
}

func newEnv(t *testing.T, cfg transfer.Config, wrap func(wallet.Service) transfer.Ledger) *env {
	t.Helper()
	log := logger.Discard()
	db := testutil.NewDB(t)
	store := repositories.NewStore(db)
	ledger := wallet.NewService(store, wallet.WalletConfig{}, log)

	var l transfer.Ledger = ledger
	if wrap != nil {
		l = wrap(ledger)
	}

	rec := &events.Recorder{}
	svc := transfer.NewService(
		store,
		l,
		limits.NewGuard(store, limits.DefaultConfig(), log),
		identity.NewService(repositories.NewUserRepository(db, nil)),
		refcode.New("TRX", log),
		cfg,
		log,
		transfer.WithPublisher(rec),
	)
	return &env{
		svc:    svc,
		store:  store,
		ledger: ledger,
		events: rec,
		alice:  testutil.CreateUser(t, db, "alice"),
		bob:    testutil.CreateUser(t, db, "bob"),
		carol:  testutil.CreateUser(t, db, "carol"),
	}
}

func defaultConfig() transfer.Config {
	return transfer.Config{FeeRate: dec("0.002")}
}

func (e *env) fund(t *testing.T, userID uint, amount string) {
	t.Helper()
	_, err := e.ledger.Mint(context.Background(), userID, dec(amount), "test funding")
	require.NoError(t, err)
}

func (e *env) balance(t *testing.T, userID uint) decimal.Decimal {
	t.Helper()
	w, err := e.store.Wallets().GetByUserID(context.Background(), userID)
	if errors.Is(err, repositories.ErrWalletNotFound) {
		return decimal.Zero
	}
	require.NoError(t, err)
	return w.Balance
}

func TestExecute_ChargesFeeToRecipient(t *testing.T) {
	e := newEnv(t, defaultConfig(), nil)
	ctx := context.Background()
	e.fund(t, e.alice.ID, "100")

	res, err := e.svc.Execute(ctx, transfer.Request{
		FromUserID: e.alice.ID,
		ToUserID:   e.bob.ID,
		Amount:     dec("50"),
		Note:       "dinner",
	})
	require.NoError(t, err)

	assert.True(t, res.SenderBalance.Equal(dec("50")))
	assert.True(t, res.RecipientBalance.Equal(dec("49.90")))
	assert.True(t, res.Preview.PlatformFee.Equal(dec("0.10")))
	assert.True(t, refcode.Valid("TRX", res.Reference))
	require.Len(t, res.Legs, 3)
	assert.Equal(t, models.EntryTransferOut, res.Legs[0].Type)
	assert.Equal(t, models.EntryTransferIn, res.Legs[1].Type)
	assert.Equal(t, models.EntryPlatformFee, res.Legs[2].Type)

	assert.True(t, e.balance(t, e.alice.ID).Equal(dec("50")))
	assert.True(t, e.balance(t, e.bob.ID).Equal(dec("49.90")))

	entries, err := e.store.Entries().ListByReference(ctx, res.Reference)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, entry := range entries {
		require.NotNil(t, entry.ExecutedAt)
		assert.True(t, entry.ExecutedAt.Equal(*entries[0].ExecutedAt))
		assert.Equal(t, models.EntryCompleted, entry.Status)
	}
	assert.Equal(t, "dinner", entries[0].Metadata.String(models.MetaNote))

	status, err := limits.NewGuard(e.store, limits.DefaultConfig(), logger.Discard()).Status(ctx, e.alice.ID)
	require.NoError(t, err)
	assert.True(t, status.DailyUsed.Equal(dec("50")))
	assert.Equal(t, 1, status.DailyCount)

	assert.Len(t, e.events.OfType(events.TypeTransferCompleted), 1)
}

func TestExecute_InsufficientBalance(t *testing.T) {
	e := newEnv(t, defaultConfig(), nil)
	e.fund(t, e.alice.ID, "100")

	_, err := e.svc.Execute(context.Background(), transfer.Request{FromUserID: e.alice.ID, ToUserID: e.bob.ID, Amount: dec("150")})
	require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
	assert.Equal(t, "Insufficient balance. Available: $100.00, Requested: $150.00", err.Error())

	assert.True(t, e.balance(t, e.alice.ID).Equal(dec("100")))
	assert.True(t, e.balance(t, e.bob.ID).IsZero())
}

func TestExecute_RollsBackWhenFeeLegFails(t *testing.T) {
	e := newEnv(t, defaultConfig(), func(l wallet.Service) transfer.Ledger {
		return &failingLedger{Service: l, failOn: models.EntryPlatformFee}
	})
	ctx := context.Background()
	e.fund(t, e.alice.ID, "100")

	_, err := e.svc.Execute(ctx, transfer.Request{FromUserID: e.alice.ID, ToUserID: e.bob.ID, Amount: dec("50")})
	require.Error(t, err)

	assert.True(t, e.balance(t, e.alice.ID).Equal(dec("100")))
	assert.True(t, e.balance(t, e.bob.ID).IsZero())

	history, err := e.ledger.History(ctx, e.alice.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.EntryMint, history[0].Type)

	limit, err := e.store.Limits().GetByUserID(ctx, e.alice.ID)
	if err == nil {
		assert.True(t, limit.DailyAmount.IsZero())
	}
	assert.Empty(t, e.events.OfType(events.TypeTransferCompleted))
}

func TestExecute_Rejections(t *testing.T) {
	e := newEnv(t, defaultConfig(), nil)
	e.fund(t, e.alice.ID, "5000")
	ctx := context.Background()

	tests := []struct {
		name string
		req  transfer.Request
		want error
		msg  string
	}{
		{name: "self transfer", req: transfer.Request{FromUserID: e.alice.ID, ToUserID: e.alice.ID, Amount: dec("10")}, want: apperrors.ErrSelfTransfer},
		{name: "unknown recipient", req: transfer.Request{FromUserID: e.alice.ID, ToUserID: 9999, Amount: dec("10")}, want: apperrors.ErrRecipientNotFound},
		{name: "zero amount", req: transfer.Request{FromUserID: e.alice.ID, ToUserID: e.bob.ID, Amount: dec("0")}, want: apperrors.ErrInvalidAmount},
		{
			name: "above tier maximum",
			req:  transfer.Request{FromUserID: e.alice.ID, ToUserID: e.bob.ID, Amount: dec("1500")},
			want: apperrors.ErrLimitExceeded,
			msg:  "Maximum transfer amount is $1000.00. Upgrade your verification level for higher limits.",
		},
		{
			name: "below tier minimum",
			req:  transfer.Request{FromUserID: e.alice.ID, ToUserID: e.bob.ID, Amount: dec("0.50")},
			want: apperrors.ErrLimitExceeded,
			msg:  "Minimum transfer amount is $1.00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Execute(ctx, tt.req)
			require.ErrorIs(t, err, tt.want)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, err.Error())
			}
		})
	}

	assert.True(t, e.balance(t, e.alice.ID).Equal(dec("5000")))
}

func TestExecute_RecipientWalletDeactivated(t *testing.T) {
	e := newEnv(t, defaultConfig(), nil)
	e.fund(t, e.alice.ID, "100")
	e.fund(t, e.bob.ID, "10")
	ctx := context.Background()
	require.NoError(t, e.ledger.Deactivate(ctx, e.bob.ID))

	_, err := e.svc.Preview(ctx, e.alice.ID, e.bob.ID, dec("50"))
	assert.ErrorIs(t, err, apperrors.ErrRecipientWalletInactive)

	_, err = e.svc.Execute(ctx, transfer.Request{FromUserID: e.alice.ID, ToUserID: e.bob.ID, Amount: dec("50")})
	assert.ErrorIs(t, err, apperrors.ErrRecipientWalletInactive)

	assert.True(t, e.balance(t, e.alice.ID).Equal(dec("100")))
	assert.True(t, e.balance(t, e.bob.ID).Equal(dec("10")))
	assert.Empty(t, e.events.OfType(events.TypeTransferCompleted))
}

func TestExecute_NoFeeBelowMinimum(t *testing.T) {
	cfg := defaultConfig()
	cfg.FeeMinAmount = dec("100")
	e := newEnv(t, cfg, nil)
	e.fund(t, e.alice.ID, "100")

	res, err := e.svc.Execute(context.Background(), transfer.Request{FromUserID: e.alice.ID, ToUserID: e.bob.ID, Amount: dec("50")})
	require.NoError(t, err)
	assert.Len(t, res.Legs, 2)
	assert.True(t, res.RecipientBalance.Equal(dec("50")))
}

func TestPreview_DoesNotMutate(t *testing.T) {
	e := newEnv(t, defaultConfig(), nil)
	e.fund(t, e.alice.ID, "100")
	ctx := context.Background()

	p, err := e.svc.Preview(ctx, e.alice.ID, e.bob.ID, dec("50"))
	require.NoError(t, err)
	assert.Equal(t, "bob", p.RecipientName)
	assert.True(t, p.AmountSent.Equal(dec("50")))
	assert.True(t, p.AmountReceived.Equal(dec("50")))
	assert.True(t, p.PlatformFee.Equal(dec("0.1")))
	assert.True(t, p.RecipientNetAmount.Equal(dec("49.9")))
	assert.Equal(t, "0.2%", p.FeePercentage)

	_, err = e.store.Wallets().GetByUserID(ctx, e.bob.ID)
	assert.ErrorIs(t, err, repositories.ErrWalletNotFound)
	_, err = e.store.Limits().GetByUserID(ctx, e.alice.ID)
	assert.ErrorIs(t, err, repositories.ErrLimitNotFound)
	_, err = e.svc.Preview(ctx, e.bob.ID, e.alice.ID, dec("1"))
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
}

func TestExecute_OppositeDirectionsConserveValue(t *testing.T) {
	e := newEnv(t, defaultConfig(), nil)
	e.fund(t, e.alice.ID, "100")
	e.fund(t, e.bob.ID, "100")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := e.svc.Execute(ctx, transfer.Request{FromUserID: e.alice.ID, ToUserID: e.bob.ID, Amount: dec("5")})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := e.svc.Execute(ctx, transfer.Request{FromUserID: e.bob.ID, ToUserID: e.alice.ID, Amount: dec("5")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	total := e.balance(t, e.alice.ID).Add(e.balance(t, e.bob.ID))
	assert.True(t, total.Equal(dec("199.80")), "total %s", total)
}

func TestVerify(t *testing.T) {
	e := newEnv(t, defaultConfig(), nil)
	e.fund(t, e.alice.ID, "100")
	ctx := context.Background()

	res, err := e.svc.Execute(ctx, transfer.Request{FromUserID: e.alice.ID, ToUserID: e.bob.ID, Amount: dec("50"), Note: "rent"})
	require.NoError(t, err)

	v, err := e.svc.Verify(ctx, strings.ToLower(res.Reference), e.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Reference, v.Reference)
	assert.Len(t, v.Legs, 3)

	_, err = e.svc.Verify(ctx, res.Reference, e.carol.ID)
	assert.ErrorIs(t, err, apperrors.ErrReferenceForbidden)

	_, err = e.svc.Verify(ctx, "TRX-ZZZZZZ", e.alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrReferenceNotFound)

	admin, err := e.svc.VerifyAsAdmin(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, e.alice.ID, admin.SenderID)
	assert.Equal(t, "alice", admin.SenderName)
	assert.Equal(t, e.bob.ID, admin.RecipientID)
	assert.Equal(t, "bob", admin.RecipientName)
	assert.True(t, admin.Amount.Equal(dec("50")))
	assert.True(t, admin.PlatformFee.Equal(dec("0.10")))
	assert.True(t, admin.RecipientNet.Equal(dec("49.90")))
	assert.Equal(t, "rent", admin.Note)
}
