package wallet

import (
	"context"

	"ledgerpay/internal/models"
	"ledgerpay/internal/services/refcode"

	"github.com/shopspring/decimal"
)

func (s *service) Reward(ctx context.Context, userID uint, amount decimal.Decimal, reason string) (*Mutation, error) {
	return s.credit(ctx, userID, amount, models.EntryReward, describe("Reward", reason), map[string]interface{}{
		models.MetaReason: reason,
	})
}

func (s *service) Bonus(ctx context.Context, userID uint, amount decimal.Decimal, reason string) (*Mutation, error) {
	return s.credit(ctx, userID, amount, models.EntryBonus, describe("Bonus", reason), map[string]interface{}{
		models.MetaReason: reason,
	})
}

func (s *service) Referral(ctx context.Context, userID uint, amount decimal.Decimal, reason string) (*Mutation, error) {
	return s.credit(ctx, userID, amount, models.EntryReferral, describe("Referral reward", reason), map[string]interface{}{
		models.MetaReason: reason,
	})
}

// Mint creates value out of nothing. Admin only.
func (s *service) Mint(ctx context.Context, userID uint, amount decimal.Decimal, reason string) (*Mutation, error) {
	return s.credit(ctx, userID, amount, models.EntryMint, describe("Mint", reason), map[string]interface{}{
		models.MetaReason: reason,
	})
}

// Burn destroys value. Admin only.
func (s *service) Burn(ctx context.Context, userID uint, amount decimal.Decimal, reason string) (*Mutation, error) {
	return s.debit(ctx, userID, amount, models.EntryBurn, describe("Burn", reason), map[string]interface{}{
		models.MetaReason: reason,
	})
}

func (s *service) Penalty(ctx context.Context, userID uint, amount decimal.Decimal, reason string) (*Mutation, error) {
	return s.debit(ctx, userID, amount, models.EntryPenalty, describe("Penalty", reason), map[string]interface{}{
		models.MetaReason: reason,
	})
}

func (s *service) Purchase(ctx context.Context, userID uint, amount decimal.Decimal, orderID string) (*Mutation, error) {
	return s.debit(ctx, userID, amount, models.EntryPurchase, describe("Purchase", orderID), map[string]interface{}{
		models.MetaOrderID: orderID,
	})
}

// Cashback credits orderAmount times the wallet's cashback rate, or the
// configured default when the wallet has none.
func (s *service) Cashback(ctx context.Context, userID uint, orderAmount decimal.Decimal, orderID string) (*Mutation, error) {
	if err := positive(orderAmount); err != nil {
		return nil, err
	}

	wallet, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	rate := wallet.CashbackRate
	if !rate.IsPositive() {
		rate = s.config.DefaultCashbackRate
	}

	amount := orderAmount.Mul(rate).Round(2)
	return s.credit(ctx, userID, amount, models.EntryCashback, describe("Cashback", orderID), map[string]interface{}{
		models.MetaOrderID:      orderID,
		models.MetaOrderAmount:  orderAmount.StringFixed(2),
		models.MetaCashbackRate: rate.String(),
	})
}

func (s *service) credit(ctx context.Context, userID uint, amount decimal.Decimal, entryType models.EntryType, description string, fields map[string]interface{}) (*Mutation, error) {
	if err := positive(amount); err != nil {
		return nil, err
	}
	return s.ApplyDelta(ctx, Delta{
		UserID:      userID,
		Amount:      amount,
		Type:        entryType,
		Reference:   refcode.Sortable(refcode.PrefixLedger),
		Description: description,
		Metadata:    models.NewMetadata(entryType, fields),
	})
}

func (s *service) debit(ctx context.Context, userID uint, amount decimal.Decimal, entryType models.EntryType, description string, fields map[string]interface{}) (*Mutation, error) {
	if err := positive(amount); err != nil {
		return nil, err
	}
	return s.ApplyDelta(ctx, Delta{
		UserID:      userID,
		Amount:      amount.Neg(),
		Type:        entryType,
		Reference:   refcode.Sortable(refcode.PrefixLedger),
		Description: description,
		Metadata:    models.NewMetadata(entryType, fields),
	})
}
