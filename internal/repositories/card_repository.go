package repositories

import (
	"context"
	"errors"
	"fmt"

	"ledgerpay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type cardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) CreateCardholder(ctx context.Context, holder *models.Cardholder) error {
	if err := r.db.WithContext(ctx).Create(holder).Error; err != nil {
		return fmt.Errorf("failed to create cardholder: %w", err)
	}
	return nil
}

func (r *cardRepository) GetCardholderByProcessorID(ctx context.Context, processorID string) (*models.Cardholder, error) {
	var holder models.Cardholder
	err := r.db.WithContext(ctx).Where("processor_cardholder_id = ?", processorID).First(&holder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardholderNotFound
		}
		return nil, fmt.Errorf("failed to get cardholder: %w", err)
	}
	return &holder, nil
}

func (r *cardRepository) GetCardholderByUserID(ctx context.Context, userID uint) (*models.Cardholder, error) {
	var holder models.Cardholder
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&holder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardholderNotFound
		}
		return nil, fmt.Errorf("failed to get cardholder: %w", err)
	}
	return &holder, nil
}

func (r *cardRepository) UpdateCardholderStatus(ctx context.Context, processorID, status string) error {
	result := r.db.WithContext(ctx).Model(&models.Cardholder{}).
		Where("processor_cardholder_id = ?", processorID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update cardholder status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCardholderNotFound
	}
	return nil
}

func (r *cardRepository) CreateCard(ctx context.Context, card *models.Card) error {
	if err := r.db.WithContext(ctx).Create(card).Error; err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

func (r *cardRepository) GetCard(ctx context.Context, id uint) (*models.Card, error) {
	return r.firstCard(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *cardRepository) GetCardForUpdate(ctx context.Context, id uint) (*models.Card, error) {
	return r.firstCard(forUpdate(r.db.WithContext(ctx)).Where("id = ?", id))
}

func (r *cardRepository) GetCardByProcessorID(ctx context.Context, processorID string) (*models.Card, error) {
	return r.firstCard(r.db.WithContext(ctx).Where("processor_card_id = ?", processorID))
}

func (r *cardRepository) firstCard(q *gorm.DB) (*models.Card, error) {
	var card models.Card
	if err := q.First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

func (r *cardRepository) UpdateCard(ctx context.Context, card *models.Card) error {
	result := r.db.WithContext(ctx).Model(card).
		Select("status", "spending_limit", "last4", "updated_at").
		Updates(card)
	if result.Error != nil {
		return fmt.Errorf("failed to update card: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (r *cardRepository) UpdateCardStatus(ctx context.Context, processorID, status string) error {
	result := r.db.WithContext(ctx).Model(&models.Card{}).
		Where("processor_card_id = ?", processorID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update card status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (r *cardRepository) CreateTransaction(ctx context.Context, tx *models.CardTransaction) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(tx)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create card transaction: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *cardRepository) GetTransactionByProcessorID(ctx context.Context, processorTxID string) (*models.CardTransaction, error) {
	return r.firstTransaction(r.db.WithContext(ctx).Where("processor_transaction_id = ?", processorTxID))
}

func (r *cardRepository) GetTransactionByAuthorizationID(ctx context.Context, authorizationID string) (*models.CardTransaction, error) {
	return r.firstTransaction(r.db.WithContext(ctx).Where("processor_authorization_id = ?", authorizationID))
}

func (r *cardRepository) firstTransaction(q *gorm.DB) (*models.CardTransaction, error) {
	var tx models.CardTransaction
	if err := q.First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get card transaction: %w", err)
	}
	return &tx, nil
}

func (r *cardRepository) UpdateTransaction(ctx context.Context, tx *models.CardTransaction) error {
	result := r.db.WithContext(ctx).Model(tx).
		Select("type", "status", "amount", "merchant_name", "merchant_category", "decline_reason", "metadata", "updated_at").
		Updates(tx)
	if result.Error != nil {
		return fmt.Errorf("failed to update card transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCardTransactionNotFound
	}
	return nil
}

func (r *cardRepository) ListTransactions(ctx context.Context, cardID uint, filter CardTransactionFilter) ([]models.CardTransaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.CardTransaction{}).Where("card_id = ?", cardID)
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count card transactions: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	var txs []models.CardTransaction
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(filter.Offset).Find(&txs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list card transactions: %w", err)
	}
	return txs, total, nil
}
