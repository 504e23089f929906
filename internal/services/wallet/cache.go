package wallet

import (
	"context"
	"errors"

	"ledgerpay/internal/models"
)

var errNoCache = errors.New("wallet cache disabled")

// noopCache is used when Redis is not configured.
type noopCache struct{}

func (noopCache) GetWallet(context.Context, uint) (*models.Wallet, error) { return nil, errNoCache }
func (noopCache) CacheWallet(context.Context, *models.Wallet) error       { return nil }
func (noopCache) InvalidateWallet(context.Context, uint) error            { return nil }
