package wallet

import (
	"errors"

	apperrors "ledgerpay/internal/errors"
)

// Service errors
var (
	ErrInsufficientBalance = apperrors.ErrInsufficientBalance
	ErrInvalidAmount       = apperrors.ErrInvalidAmount
	ErrWalletNotFound      = apperrors.ErrWalletNotFound
	ErrInvalidEntryType    = apperrors.ErrInvalidEntryType

	// ErrEntryFinalized is returned when a pending entry was already
	// settled or failed by someone else.
	ErrEntryFinalized = errors.New("ledger entry already finalized")
)
