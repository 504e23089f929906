package wallet

import (
	"context"
	"errors"

	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
)

// CreatePendingTx records d as a pending entry without touching the
// balance. The wallet is created if needed so the entry has an owner.
func (s *service) CreatePendingTx(ctx context.Context, tx repositories.Store, d Delta) (*models.LedgerEntry, error) {
	d, err := normalizeDelta(d)
	if err != nil {
		return nil, err
	}

	wallet, err := s.lockWallet(ctx, tx, d.UserID, true)
	if err != nil {
		return nil, err
	}

	entry := s.buildEntry(wallet, d, models.EntryPending)
	entry.BalanceAfter = wallet.Balance
	if err := tx.Entries().Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// SettlePendingTx completes a pending entry and applies its amount. The
// status transition is conditional on pending, so a second settle, even a
// concurrent one, gets ErrEntryFinalized and changes nothing.
func (s *service) SettlePendingTx(ctx context.Context, tx repositories.Store, entryID uint) (*Mutation, error) {
	entry, err := tx.Entries().GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.EntryPending {
		return nil, ErrEntryFinalized
	}

	wallet, err := s.lockWallet(ctx, tx, entry.UserID, false)
	if err != nil {
		return nil, err
	}
	if err := s.apply(wallet, entry.Amount); err != nil {
		s.metrics.RecordOperationResult(opSettle, "insufficient_balance")
		return nil, err
	}

	executedAt := s.now().UTC()
	err = tx.Entries().Transition(ctx, entry.ID, models.EntryPending, models.EntryCompleted, map[string]interface{}{
		"balance_after": wallet.Balance,
		"executed_at":   executedAt,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrStatusConflict) {
			return nil, ErrEntryFinalized
		}
		return nil, err
	}
	if err := tx.Wallets().Update(ctx, wallet); err != nil {
		return nil, err
	}

	entry.Status = models.EntryCompleted
	entry.BalanceAfter = wallet.Balance
	entry.ExecutedAt = &executedAt
	s.metrics.RecordOperationResult(opSettle, "success")
	return &Mutation{Wallet: wallet, Entry: entry}, nil
}

// FailPendingTx marks a pending entry failed and keeps reason in its
// metadata. The balance is untouched.
func (s *service) FailPendingTx(ctx context.Context, tx repositories.Store, entryID uint, reason string) error {
	entry, err := tx.Entries().GetByID(ctx, entryID)
	if err != nil {
		return err
	}

	meta := models.JSON{}
	for k, v := range entry.Metadata {
		meta[k] = v
	}
	if reason != "" {
		meta["failure_reason"] = reason
	}

	err = tx.Entries().Transition(ctx, entry.ID, models.EntryPending, models.EntryFailed, map[string]interface{}{
		"metadata": meta,
	})
	if errors.Is(err, repositories.ErrStatusConflict) {
		return ErrEntryFinalized
	}
	return err
}
