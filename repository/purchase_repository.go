package repository

import (
	"context"
	"errors"

	"github.com/velmart/velmart-backend/models"
	"gorm.io/gorm"
)

// PurchaseRepositoryImpl implements PurchaseRepository
type PurchaseRepositoryImpl struct {
	*BaseRepository[models.Purchase, models.PurchaseFilter]
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &PurchaseRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Purchase, models.PurchaseFilter](db),
	}
}

// ByClientID returns the client's history in insertion order, oldest first.
func (r *PurchaseRepositoryImpl) ByClientID(ctx context.Context, clientID uint) ([]*models.Purchase, error) {
	db := r.getDB(ctx)
	var purchases []*models.Purchase
	if err := db.Where("client_id = ?", clientID).Order("id ASC").Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

func (r *PurchaseRepositoryImpl) ByPaymentID(ctx context.Context, paymentID uint) (*models.Purchase, error) {
	db := r.getDB(ctx)
	var purchase models.Purchase
	if err := db.Where("payment_id = ?", paymentID).Last(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}
