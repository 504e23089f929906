package transfer

import (
	"context"
	"fmt"

	apperrors "ledgerpay/internal/errors"
	"ledgerpay/internal/models"
	"ledgerpay/internal/services/refcode"

	"github.com/shopspring/decimal"
)

func (s *service) Verify(ctx context.Context, code string, requesterID uint) (*Verification, error) {
	entries, err := s.entriesFor(ctx, code)
	if err != nil {
		return nil, err
	}

	participant := false
	for _, e := range entries {
		if e.UserID == requesterID {
			participant = true
			break
		}
	}
	if !participant {
		return nil, apperrors.ErrReferenceForbidden
	}

	v := &Verification{
		Reference:  entries[0].ReferenceCode(),
		ExecutedAt: entries[0].ExecutedAt,
	}
	for i := range entries {
		v.Legs = append(v.Legs, legOf(&entries[i]))
	}
	return v, nil
}

func (s *service) VerifyAsAdmin(ctx context.Context, code string) (*AdminVerification, error) {
	entries, err := s.entriesFor(ctx, code)
	if err != nil {
		return nil, err
	}

	v := &AdminVerification{
		Reference:   entries[0].ReferenceCode(),
		ExecutedAt:  entries[0].ExecutedAt,
		Status:      string(entries[0].Status),
		Amount:      decimal.Zero,
		PlatformFee: decimal.Zero,
	}
	for i := range entries {
		e := &entries[i]
		v.Legs = append(v.Legs, legOf(e))
		switch e.Type {
		case models.EntryTransferOut:
			v.SenderID = e.UserID
			v.Amount = e.Amount.Neg()
			v.Note = e.Metadata.String(models.MetaNote)
		case models.EntryTransferIn:
			v.RecipientID = e.UserID
		case models.EntryPlatformFee:
			v.PlatformFee = e.Amount.Neg()
		}
	}
	v.RecipientNet = v.Amount.Sub(v.PlatformFee)
	v.SenderName = s.displayName(ctx, v.SenderID)
	v.RecipientName = s.displayName(ctx, v.RecipientID)
	return v, nil
}

func (s *service) entriesFor(ctx context.Context, code string) ([]models.LedgerEntry, error) {
	code = refcode.Normalize(code)
	if code == "" {
		return nil, apperrors.ErrReferenceNotFound
	}
	entries, err := s.store.Entries().ListByReference(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apperrors.ErrReferenceNotFound
	}
	return entries, nil
}

func (s *service) displayName(ctx context.Context, userID uint) string {
	if userID == 0 {
		return ""
	}
	if who, err := s.directory.Lookup(ctx, userID); err == nil {
		return who.Name
	}
	return fmt.Sprintf("user #%d", userID)
}
