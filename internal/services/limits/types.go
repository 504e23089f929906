package limits

import (
	"fmt"
	"time"

	"ledgerpay/internal/models"

	"github.com/shopspring/decimal"
)

// Limits are the caps for one tier.
type Limits struct {
	MinPerTransaction decimal.Decimal `json:"min_per_transaction"`
	MaxPerTransaction decimal.Decimal `json:"max_per_transaction"`
	Daily             decimal.Decimal `json:"daily"`
	Monthly           decimal.Decimal `json:"monthly"`
}

type Config struct {
	Tiers map[models.TransferTier]Limits
}

// DefaultConfig returns the built-in tier table.
func DefaultConfig() Config {
	d := decimal.RequireFromString
	return Config{Tiers: map[models.TransferTier]Limits{
		models.TierNone:  {MinPerTransaction: d("1"), MaxPerTransaction: d("1000"), Daily: d("1200"), Monthly: d("4000")},
		models.TierBasic: {MinPerTransaction: d("1"), MaxPerTransaction: d("5000"), Daily: d("8000"), Monthly: d("40000")},
		models.TierFull:  {MinPerTransaction: d("1"), MaxPerTransaction: d("20000"), Daily: d("40000"), Monthly: d("200000")},
	}}
}

// Validate checks that every tier is present and that no limit shrinks
// when moving to a higher tier.
func (c Config) Validate() error {
	var prev *Limits
	for _, tier := range models.TransferTiers {
		l, ok := c.Tiers[tier]
		if !ok {
			return fmt.Errorf("missing limits for tier %q", tier)
		}
		if l.MinPerTransaction.IsNegative() || l.MaxPerTransaction.LessThan(l.MinPerTransaction) {
			return fmt.Errorf("tier %q: invalid per-transaction bounds", tier)
		}
		if prev != nil {
			if l.MaxPerTransaction.LessThan(prev.MaxPerTransaction) ||
				l.Daily.LessThan(prev.Daily) ||
				l.Monthly.LessThan(prev.Monthly) ||
				l.MinPerTransaction.GreaterThan(prev.MinPerTransaction) {
				return fmt.Errorf("tier %q is more restrictive than the tier below it", tier)
			}
		}
		cur := l
		prev = &cur
	}
	return nil
}

// Decision is the outcome of a limit check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Status is the read model behind the limits endpoint.
type Status struct {
	UserID           uint                `json:"user_id"`
	Tier             models.TransferTier `json:"tier"`
	Limits           Limits              `json:"limits"`
	DailyUsed        decimal.Decimal     `json:"daily_used"`
	MonthlyUsed      decimal.Decimal     `json:"monthly_used"`
	DailyRemaining   decimal.Decimal     `json:"daily_remaining"`
	MonthlyRemaining decimal.Decimal     `json:"monthly_remaining"`
	DailyCount       int                 `json:"daily_count"`
	MonthlyCount     int                 `json:"monthly_count"`
	LifetimeAmount   decimal.Decimal     `json:"lifetime_amount"`
	LifetimeCount    int                 `json:"lifetime_count"`
	AsOf             time.Time           `json:"as_of"`
}
