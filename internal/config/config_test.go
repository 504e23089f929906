package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CFG_INT", "42")
	t.Setenv("CFG_BAD_INT", "forty")
	t.Setenv("CFG_BOOL", "true")
	t.Setenv("CFG_DURATION", "90s")
	t.Setenv("CFG_DECIMAL", " 0.015 ")
	t.Setenv("CFG_LIST", "a:1, ,b:2,")
	t.Setenv("CFG_EMPTY", "")

	assert.Equal(t, 42, GetIntEnv("CFG_INT", 1))
	assert.Equal(t, 1, GetIntEnv("CFG_BAD_INT", 1))
	assert.True(t, GetBoolEnv("CFG_BOOL", false))
	assert.Equal(t, 90*time.Second, GetDurationEnv("CFG_DURATION", time.Second))
	assert.True(t, decimal.RequireFromString("0.015").Equal(GetDecimalEnv("CFG_DECIMAL", decimal.Zero)))
	assert.Equal(t, []string{"a:1", "b:2"}, GetListEnv("CFG_LIST", nil))
	assert.Equal(t, "fallback", GetEnv("CFG_EMPTY", "fallback"))
	assert.Equal(t, []string{"x"}, GetListEnv("CFG_EMPTY", []string{"x"}))
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "usd", cfg.Stripe.Currency)
	assert.Equal(t, "TRX", cfg.Ledger.ReferencePrefix)
	assert.True(t, decimal.RequireFromString("0.002").Equal(cfg.Ledger.PlatformFeeRate))
	assert.True(t, decimal.NewFromInt(1).Equal(cfg.Ledger.TopUpMinAmount))
	assert.True(t, decimal.NewFromInt(10000).Equal(cfg.Ledger.TopUpMaxAmount))

	require.Contains(t, cfg.Ledger.Tiers, "none")
	require.Contains(t, cfg.Ledger.Tiers, "full")
	assert.True(t, decimal.NewFromInt(1000).Equal(cfg.Ledger.Tiers["none"].MaxPerTransaction))
	assert.True(t, decimal.NewFromInt(200000).Equal(cfg.Ledger.Tiers["full"].Monthly))
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STRIPE_CURRENCY", "EUR")
	t.Setenv("TRANSFER_LIMIT_BASIC_DAILY", "9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DB_HOST", "db.internal")

	cfg := Load()

	assert.Equal(t, "eur", cfg.Stripe.Currency)
	assert.True(t, decimal.NewFromInt(9000).Equal(cfg.Ledger.Tiers["basic"].Daily))
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal")
}
