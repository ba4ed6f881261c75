package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/velmart/velmart-backend/models"
	"gorm.io/gorm"
)

// ClientRepositoryImpl implements ClientRepository
type ClientRepositoryImpl struct {
	*BaseRepository[models.Client, models.ClientFilter]
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &ClientRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Client, models.ClientFilter](db),
	}
}

func (r *ClientRepositoryImpl) ByTelegramID(ctx context.Context, telegramID int64) (*models.Client, error) {
	db := r.getDB(ctx)
	var client models.Client
	if err := db.Where("telegram_id = ?", telegramID).Last(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

// AddToBalance applies delta atomically. The WHERE guard keeps the balance
// non-negative even when two deductions race on the same row.
func (r *ClientRepositoryImpl) AddToBalance(ctx context.Context, clientID uint, delta float64) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.Client{}).
		Where("id = ? AND balance + ? >= 0", clientID, delta).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return false, fmt.Errorf("failed to adjust client balance: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
