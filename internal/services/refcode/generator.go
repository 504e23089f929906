// Package refcode issues the short codes printed on transfer receipts.
//
// A code looks like TRX-7KQ2MX: a prefix, a dash and six symbols drawn from
// a 31-symbol alphabet: A-Z and 2-9 without the easily confused 0, O, 1,
// I and L.
package refcode

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	Alphabet      = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	CodeLength    = 6
	DefaultPrefix = "TRX"
	MaxAttempts   = 10
)

// ExistsFunc reports whether code is already stored.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

type Generator struct {
	prefix  string
	entropy io.Reader
	now     func() time.Time
	log     logrus.FieldLogger
}

type Option func(*Generator)

// WithEntropy replaces crypto/rand as the randomness source.
func WithEntropy(r io.Reader) Option {
	return func(g *Generator) { g.entropy = r }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func New(prefix string, log logrus.FieldLogger, opts ...Option) *Generator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	g := &Generator{
		prefix:  prefix,
		entropy: rand.Reader,
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Prefix() string {
	return g.prefix
}

// Generate draws one random code without checking for collisions.
func (g *Generator) Generate() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	var b strings.Builder
	b.Grow(len(g.prefix) + 1 + CodeLength)
	b.WriteString(g.prefix)
	b.WriteByte('-')
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(g.entropy, max)
		if err != nil {
			return "", fmt.Errorf("failed to draw reference symbol: %w", err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// GenerateUnique draws up to MaxAttempts codes and returns the first one
// exists reports as free. When every draw collides it falls back to a code
// derived from the current time.
func (g *Generator) GenerateUnique(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		code, err := g.Generate()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check reference %s: %w", code, err)
		}
		if !taken {
			return code, nil
		}
		g.log.WithFields(logrus.Fields{"reference": code, "attempt": attempt}).Debug("reference collision")
	}

	code := g.fallback()
	g.log.WithField("reference", code).Warn("reference draws exhausted, using time-derived code")
	return code, nil
}

// fallback encodes the clock in the code alphabet and keeps the last
// CodeLength symbols.
func (g *Generator) fallback() string {
	n := g.now().UnixNano()
	base := int64(len(Alphabet))
	buf := make([]byte, CodeLength)
	for i := CodeLength - 1; i >= 0; i-- {
		buf[i] = Alphabet[n%base]
		n /= base
	}
	return g.prefix + "-" + string(buf)
}

// Normalize prepares user input for lookup.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code has the PREFIX-XXXXXX shape for prefix.
func Valid(prefix, code string) bool {
	head := prefix + "-"
	if !strings.HasPrefix(code, head) {
		return false
	}
	body := code[len(head):]
	if len(body) != CodeLength {
		return false
	}
	for i := 0; i < len(body); i++ {
		if strings.IndexByte(Alphabet, body[i]) < 0 {
			return false
		}
	}
	return true
}
