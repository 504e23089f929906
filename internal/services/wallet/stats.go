package wallet

import (
	"context"

	"ledgerpay/internal/models"
)

// History lists the user's entries newest first.
func (s *service) History(ctx context.Context, userID uint, limit, offset int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = s.config.HistoryLimit
	}
	if limit > s.config.MaxHistoryLimit {
		limit = s.config.MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Entries().ListByUser(ctx, userID, limit, offset)
}

func (s *service) Stats(ctx context.Context) (*LedgerStats, error) {
	count, err := s.store.Wallets().Count(ctx)
	if err != nil {
		return nil, err
	}
	circulation, err := s.store.Wallets().TotalBalance(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.store.Entries().Totals(ctx)
	if err != nil {
		return nil, err
	}
	daily, err := s.store.Metrics().ListDaily(ctx, s.config.StatsDays)
	if err != nil {
		return nil, err
	}

	return &LedgerStats{
		Wallets:     count,
		Circulation: circulation,
		Credits:     totals.Credits,
		Debits:      totals.Debits,
		Entries:     totals.Entries,
		Daily:       daily,
	}, nil
}
