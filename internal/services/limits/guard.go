// Package limits enforces per-user transfer caps by tier.
//
// Daily and monthly accumulators are not swept by a job. Every read
// compares the stored reset dates with the clock and zeroes a window once
// its boundary has passed; the zeroing is persisted only while the row is
// locked, so concurrent readers never overwrite fresh counters.
package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "ledgerpay/internal/errors"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Guard struct {
	store repositories.Store
	cfg   Config
	now   func() time.Time
	log   logrus.FieldLogger
}

type Option func(*Guard)

func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

func NewGuard(store repositories.Store, cfg Config, log logrus.FieldLogger, opts ...Option) *Guard {
	if store == nil {
		panic("store is required")
	}
	if cfg.Tiers == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	g := &Guard{store: store, cfg: cfg, now: time.Now, log: log}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LimitsFor returns the caps of tier, falling back to the lowest tier.
func (g *Guard) LimitsFor(tier models.TransferTier) Limits {
	if l, ok := g.cfg.Tiers[tier]; ok {
		return l
	}
	return g.cfg.Tiers[models.TierNone]
}

// GetOrCreate returns the user's record with expired windows already
// zeroed. It does not persist the reset.
func (g *Guard) GetOrCreate(ctx context.Context, userID uint) (*models.TransferLimit, error) {
	limit, err := g.load(ctx, g.store, userID, false)
	if err != nil {
		return nil, err
	}
	g.applyResets(limit, g.clock())
	return limit, nil
}

// Current returns the user's record with expired windows zeroed, or an
// unsaved zero-usage record on the lowest tier when none exists. It never
// writes.
func (g *Guard) Current(ctx context.Context, userID uint) (*models.TransferLimit, error) {
	now := g.clock()
	limit, err := g.store.Limits().GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrLimitNotFound) {
		today := startOfDay(now)
		return &models.TransferLimit{
			UserID:           userID,
			Tier:             models.TierNone,
			LastDailyReset:   today,
			LastMonthlyReset: today,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	g.applyResets(limit, now)
	return limit, nil
}

// CheckTransferAllowed evaluates amount against the user's current usage.
// The record is created by RecordTransfer, not here.
func (g *Guard) CheckTransferAllowed(ctx context.Context, userID uint, amount decimal.Decimal) (Decision, error) {
	limit, err := g.Current(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	return g.Evaluate(limit, amount), nil
}

// Evaluate applies the checks in priority order: tier minimum, tier
// maximum per transaction, remaining daily, remaining monthly.
func (g *Guard) Evaluate(limit *models.TransferLimit, amount decimal.Decimal) Decision {
	l := g.LimitsFor(limit.Tier)

	if amount.LessThan(l.MinPerTransaction) {
		return Decision{Reason: fmt.Sprintf("Minimum transfer amount is $%s", l.MinPerTransaction.StringFixed(2))}
	}
	if amount.GreaterThan(l.MaxPerTransaction) {
		return Decision{Reason: fmt.Sprintf("Maximum transfer amount is $%s. Upgrade your verification level for higher limits.", l.MaxPerTransaction.StringFixed(2))}
	}
	if daily := remaining(l.Daily, limit.DailyAmount); amount.GreaterThan(daily) {
		return Decision{Reason: fmt.Sprintf("Daily limit exceeded. Remaining: $%s", daily.StringFixed(2))}
	}
	if monthly := remaining(l.Monthly, limit.MonthlyAmount); amount.GreaterThan(monthly) {
		return Decision{Reason: fmt.Sprintf("Monthly limit exceeded. Remaining: $%s", monthly.StringFixed(2))}
	}
	return Decision{Allowed: true}
}

// RecordTransfer locks the record inside tx, re-checks amount and adds it
// to every accumulator. A denied re-check returns ErrLimitExceeded.
func (g *Guard) RecordTransfer(ctx context.Context, tx repositories.Store, userID uint, amount decimal.Decimal) error {
	limit, err := g.load(ctx, tx, userID, true)
	if err != nil {
		return err
	}
	g.applyResets(limit, g.clock())

	if d := g.Evaluate(limit, amount); !d.Allowed {
		return apperrors.ErrLimitExceeded.Withf("%s", d.Reason)
	}

	limit.DailyAmount = limit.DailyAmount.Add(amount)
	limit.MonthlyAmount = limit.MonthlyAmount.Add(amount)
	limit.LifetimeAmount = limit.LifetimeAmount.Add(amount)
	limit.DailyCount++
	limit.MonthlyCount++
	limit.LifetimeCount++

	return tx.Limits().Update(ctx, limit)
}

// Status reports tier, usage and what is left in each window.
func (g *Guard) Status(ctx context.Context, userID uint) (*Status, error) {
	limit, err := g.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	l := g.LimitsFor(limit.Tier)
	return &Status{
		UserID:           userID,
		Tier:             limit.Tier,
		Limits:           l,
		DailyUsed:        limit.DailyAmount,
		MonthlyUsed:      limit.MonthlyAmount,
		DailyRemaining:   remaining(l.Daily, limit.DailyAmount),
		MonthlyRemaining: remaining(l.Monthly, limit.MonthlyAmount),
		DailyCount:       limit.DailyCount,
		MonthlyCount:     limit.MonthlyCount,
		LifetimeAmount:   limit.LifetimeAmount,
		LifetimeCount:    limit.LifetimeCount,
		AsOf:             g.clock(),
	}, nil
}

// SetTier moves the user to tier, creating the record if needed. Usage
// counters are kept.
func (g *Guard) SetTier(ctx context.Context, userID uint, tier models.TransferTier) (*models.TransferLimit, error) {
	if !tier.Valid() {
		return nil, apperrors.ErrInvalidTier
	}

	var out *models.TransferLimit
	err := g.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		limit, err := g.load(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		g.applyResets(limit, g.clock())
		limit.Tier = tier
		if err := tx.Limits().Update(ctx, limit); err != nil {
			return err
		}
		out = limit
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.log.WithFields(logrus.Fields{"user_id": userID, "tier": tier}).Info("transfer tier updated")
	return out, nil
}

func (g *Guard) load(ctx context.Context, store repositories.Store, userID uint, lock bool) (*models.TransferLimit, error) {
	get := store.Limits().GetByUserID
	if lock {
		get = store.Limits().GetByUserIDForUpdate
	}

	limit, err := get(ctx, userID)
	if err == nil {
		return limit, nil
	}
	if !errors.Is(err, repositories.ErrLimitNotFound) {
		return nil, err
	}

	today := startOfDay(g.clock())
	if _, err := store.Limits().Create(ctx, &models.TransferLimit{
		UserID:           userID,
		Tier:             models.TierNone,
		LastDailyReset:   today,
		LastMonthlyReset: today,
	}); err != nil {
		return nil, err
	}
	return get(ctx, userID)
}

// applyResets zeroes the daily window when today is after the last daily
// reset, and the monthly window when the calendar month has moved on.
func (g *Guard) applyResets(limit *models.TransferLimit, now time.Time) {
	today := startOfDay(now)

	if today.After(startOfDay(limit.LastDailyReset)) {
		limit.DailyAmount = decimal.Zero
		limit.DailyCount = 0
		limit.LastDailyReset = today
	}
	if startOfMonth(now).After(startOfMonth(limit.LastMonthlyReset)) {
		limit.MonthlyAmount = decimal.Zero
		limit.MonthlyCount = 0
		limit.LastMonthlyReset = today
	}
}

func (g *Guard) clock() time.Time {
	return g.now().UTC()
}

func remaining(ceiling, used decimal.Decimal) decimal.Decimal {
	r := ceiling.Sub(used)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
