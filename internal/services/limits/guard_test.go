package limits_test

import (
	"context"
	"testing"
	"time"

	apperrors "ledgerpay/internal/errors"
	"ledgerpay/internal/logger"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/services/limits"
	"ledgerpay/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newGuard(t *testing.T, c *clock) (*limits.Guard, repositories.Store) {
	t.Helper()
	store := repositories.NewStore(testutil.NewDB(t))
	return limits.NewGuard(store, limits.DefaultConfig(), logger.Discard(), limits.WithClock(c.now)), store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func record(t *testing.T, g *limits.Guard, store repositories.Store, userID uint, amount string) error {
	t.Helper()
	return store.ExecuteInTransaction(context.Background(), func(tx repositories.Store) error {
		return g.RecordTransfer(context.Background(), tx, userID, dec(amount))
	})
}

func TestEvaluate_PriorityOrder(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
	g, _ := newGuard(t, c)

	tests := []struct {
		name    string
		limit   models.TransferLimit
		amount  string
		allowed bool
		reason  string
	}{
		{name: "below minimum", amount: "0.50", reason: "Minimum transfer amount is $1.00"},
		{name: "above per transaction max", amount: "1000.01", reason: "Maximum transfer amount is $1000.00"},
		{
			name:   "exceeds remaining daily",
			limit:  models.TransferLimit{DailyAmount: dec("900"), MonthlyAmount: dec("900")},
			amount: "400",
			reason: "Daily limit exceeded. Remaining: $300.00",
		},
		{
			name:   "exceeds remaining monthly",
			limit:  models.TransferLimit{DailyAmount: dec("0"), MonthlyAmount: dec("3800")},
			amount: "250",
			reason: "Monthly limit exceeded. Remaining: $200.00",
		},
		{name: "allowed", amount: "50", allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit := tt.limit
			limit.Tier = models.TierNone
			d := g.Evaluate(&limit, dec(tt.amount))
			assert.Equal(t, tt.allowed, d.Allowed)
			if tt.reason != "" {
				assert.Contains(t, d.Reason, tt.reason)
			}
		})
	}
}

func TestRecordTransfer_AccumulatesAndDenies(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
	g, store := newGuard(t, c)

	require.NoError(t, record(t, g, store, 7, "800"))
	require.NoError(t, record(t, g, store, 7, "300"))

	err := record(t, g, store, 7, "200")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrLimitExceeded)
	assert.Contains(t, err.Error(), "Daily limit exceeded")

	status, err := g.Status(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, dec("1100").Equal(status.DailyUsed))
	assert.True(t, dec("100").Equal(status.DailyRemaining))
	assert.Equal(t, 2, status.DailyCount)
	assert.Equal(t, 2, status.LifetimeCount)
}

func TestLazyReset(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 31, 22, 0, 0, 0, time.UTC)}
	g, store := newGuard(t, c)
	ctx := context.Background()

	require.NoError(t, record(t, g, store, 3, "1000"))

	// Next day, same month: daily window resets, monthly keeps counting.
	c.t = time.Date(2026, 6, 1, 0, 0, 1, 0, time.UTC)
	status, err := g.Status(ctx, 3)
	require.NoError(t, err)
	assert.True(t, status.DailyUsed.IsZero())
	assert.True(t, status.MonthlyUsed.IsZero(), "june starts a new month")

	c.t = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, record(t, g, store, 3, "500"))

	c.t = time.Date(2026, 6, 2, 8, 0, 0, 0, time.UTC)
	status, err = g.Status(ctx, 3)
	require.NoError(t, err)
	assert.True(t, status.DailyUsed.IsZero())
	assert.True(t, dec("500").Equal(status.MonthlyUsed))
	assert.True(t, dec("1500").Equal(status.LifetimeAmount))

	// Reading after the boundary must not wipe what a later write stored.
	require.NoError(t, record(t, g, store, 3, "100"))
	status, err = g.Status(ctx, 3)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(status.DailyUsed))
	assert.True(t, dec("600").Equal(status.MonthlyUsed))
}

func TestLazyReset_AfterLongGap(t *testing.T) {
	c := &clock{t: time.Date(2026, 7, 20, 12, 0, 0, 0, time.UTC)}
	g, store := newGuard(t, c)
	ctx := context.Background()

	require.NoError(t, record(t, g, store, 4, "900"))

	// 40 days later, well into the following month.
	c.t = c.t.AddDate(0, 0, 40)
	status, err := g.Status(ctx, 4)
	require.NoError(t, err)
	assert.True(t, status.DailyUsed.IsZero())
	assert.True(t, status.MonthlyUsed.IsZero())
	assert.Zero(t, status.DailyCount)
	assert.Zero(t, status.MonthlyCount)
	assert.True(t, dec("900").Equal(status.LifetimeAmount))

	d, err := g.CheckTransferAllowed(ctx, 4, dec("1000"))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCheckTransferAllowed_DoesNotCreateRecord(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
	g, store := newGuard(t, c)
	ctx := context.Background()

	d, err := g.CheckTransferAllowed(ctx, 11, dec("1000"))
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = g.CheckTransferAllowed(ctx, 11, dec("1000.01"))
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	_, err = store.Limits().GetByUserID(ctx, 11)
	assert.ErrorIs(t, err, repositories.ErrLimitNotFound)

	require.NoError(t, record(t, g, store, 11, "10"))
	limit, err := store.Limits().GetByUserID(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, models.TierNone, limit.Tier)
}

func TestSetTier(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
	g, _ := newGuard(t, c)
	ctx := context.Background()

	_, err := g.SetTier(ctx, 9, models.TransferTier("gold"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidTier)

	limit, err := g.SetTier(ctx, 9, models.TierFull)
	require.NoError(t, err)
	assert.Equal(t, models.TierFull, limit.Tier)

	d, err := g.CheckTransferAllowed(ctx, 9, dec("15000"))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, limits.DefaultConfig().Validate())

	cfg := limits.DefaultConfig()
	full := cfg.Tiers[models.TierFull]
	full.Daily = dec("10")
	cfg.Tiers[models.TierFull] = full
	assert.Error(t, cfg.Validate())

	cfg = limits.DefaultConfig()
	delete(cfg.Tiers, models.TierBasic)
	assert.Error(t, cfg.Validate())
}
