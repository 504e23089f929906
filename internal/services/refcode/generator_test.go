package refcode

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ledgerpay/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Format(t *testing.T) {
	g := New("trx", logger.Discard())

	for i := 0; i < 200; i++ {
		code, err := g.Generate()
		require.NoError(t, err)
		assert.True(t, Valid("TRX", code), code)
		assert.Len(t, code, len("TRX-")+CodeLength)
		assert.False(t, strings.ContainsAny(code[4:], "0O1IL"), code)
	}
}

func TestAlphabet(t *testing.T) {
	assert.Len(t, Alphabet, 31)
	seen := map[rune]bool{}
	for _, r := range Alphabet {
		assert.False(t, seen[r], string(r))
		seen[r] = true
	}
	assert.False(t, strings.ContainsAny(Alphabet, "0O1IL"))
}

func TestNew_DefaultPrefix(t *testing.T) {
	g := New("  ", logger.Discard())
	assert.Equal(t, DefaultPrefix, g.Prefix())
}

func TestGenerateUnique(t *testing.T) {
	ctx := context.Background()

	t.Run("retries until a free code is drawn", func(t *testing.T) {
		g := New("TRX", logger.Discard())
		calls := 0
		code, err := g.GenerateUnique(ctx, func(context.Context, string) (bool, error) {
			calls++
			return calls < 3, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.True(t, Valid("TRX", code))
	})

	t.Run("falls back to a time derived code after ten collisions", func(t *testing.T) {
		fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		g := New("TRX", logger.Discard(), WithClock(func() time.Time { return fixed }))
		calls := 0
		code, err := g.GenerateUnique(ctx, func(context.Context, string) (bool, error) {
			calls++
			return true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, MaxAttempts, calls)
		assert.True(t, Valid("TRX", code))
		assert.Equal(t, g.fallback(), code)
	})

	t.Run("propagates lookup errors", func(t *testing.T) {
		g := New("TRX", logger.Discard())
		_, err := g.GenerateUnique(ctx, func(context.Context, string) (bool, error) {
			return false, errors.New("db down")
		})
		assert.ErrorContains(t, err, "db down")
	})
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "TRX-ABC234", Normalize("  trx-abc234 "))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("TRX", "TRX-ABC234"))
	assert.False(t, Valid("TRX", "TRX-ABC23"))
	assert.False(t, Valid("TRX", "TRX-ABC230"))
	assert.False(t, Valid("TRX", "ABC-ABC234"))
	assert.False(t, Valid("TRX", "trx-abc234"))
}

func TestSortable(t *testing.T) {
	a := Sortable(PrefixFunding)
	b := Sortable(PrefixFunding)

	assert.True(t, strings.HasPrefix(a, "FND-"))
	assert.Len(t, a, len("FND-")+26)
	assert.Less(t, a, b)
}
