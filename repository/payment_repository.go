package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/velmart/velmart-backend/models"
	"gorm.io/gorm"
)

// PaymentRepositoryImpl implements PaymentRepository
type PaymentRepositoryImpl struct {
	*BaseRepository[models.Payment, models.PaymentFilter]
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &PaymentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Payment, models.PaymentFilter](db),
	}
}

func (r *PaymentRepositoryImpl) ByProviderInvoiceID(ctx context.Context, providerInvoiceID int64) (*models.Payment, error) {
	db := r.getDB(ctx)
	var payment models.Payment
	if err := db.Where("provider_invoice_id = ?", providerInvoiceID).Last(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepositoryImpl) ByTelegramID(ctx context.Context, telegramID int64, limit, offset int) ([]*models.Payment, error) {
	db := r.getDB(ctx)
	var payments []*models.Payment
	q := db.Where("telegram_id = ?", telegramID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *PaymentRepositoryImpl) ListByFilter(ctx context.Context, filter models.PaymentFilter, limit, offset int) ([]*models.Payment, error) {
	db := r.getDB(ctx)
	q := db.Model(&models.Payment{})
	if filter.TelegramID != nil {
		q = q.Where("telegram_id = ?", *filter.TelegramID)
	}
	if filter.ClientID != nil {
		q = q.Where("client_id = ?", *filter.ClientID)
	}
	if filter.PositionID != nil {
		q = q.Where("position_id = ?", *filter.PositionID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.PurchaseCreated != nil {
		q = q.Where("purchase_created = ?", *filter.PurchaseCreated)
	}
	if filter.CreatedAfter != nil {
		q = q.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		q = q.Where("created_at <= ?", *filter.CreatedBefore)
	}
	q = q.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var payments []*models.Payment
	if err := q.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// MarkPurchaseCreated performs the conditional flag flip. Exactly one of
// any set of concurrent callers observes RowsAffected == 1; the losers get
// false and must not append a purchase.
func (r *PaymentRepositoryImpl) MarkPurchaseCreated(ctx context.Context, paymentID uint) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.Payment{}).
		Where("id = ? AND purchase_created = ?", paymentID, false).
		Update("purchase_created", true)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark purchase created: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
