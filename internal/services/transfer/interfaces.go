package transfer

import (
	"context"

	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/services/identity"
	"ledgerpay/internal/services/limits"
	"ledgerpay/internal/services/refcode"
	"ledgerpay/internal/services/wallet"

	"github.com/shopspring/decimal"
)

// Ledger defines the wallet operations used by the transfer service.
type Ledger interface {
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	ApplyDeltaTx(ctx context.Context, tx repositories.Store, d wallet.Delta) (*wallet.Mutation, error)
	Committed(ctx context.Context, mutations ...*wallet.Mutation)
}

// LimitGuard is satisfied by *limits.Guard.
type LimitGuard interface {
	CheckTransferAllowed(ctx context.Context, userID uint, amount decimal.Decimal) (limits.Decision, error)
	RecordTransfer(ctx context.Context, tx repositories.Store, userID uint, amount decimal.Decimal) error
}

// Directory resolves counterparties.
type Directory interface {
	Lookup(ctx context.Context, id uint) (*identity.Identity, error)
}

// CodeGenerator is satisfied by *refcode.Generator.
type CodeGenerator interface {
	Prefix() string
	GenerateUnique(ctx context.Context, exists refcode.ExistsFunc) (string, error)
}

// Service handles P2P transfers between users.
type Service interface {
	Preview(ctx context.Context, fromUserID, toUserID uint, amount decimal.Decimal) (*Preview, error)
	Execute(ctx context.Context, req Request) (*Result, error)

	// Verify returns the legs of a transfer to one of its participants.
	Verify(ctx context.Context, code string, requesterID uint) (*Verification, error)
	// VerifyAsAdmin returns the full summary regardless of participation.
	VerifyAsAdmin(ctx context.Context, code string) (*AdminVerification, error)
}
