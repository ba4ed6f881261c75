package repository

import (
	"context"
	"errors"

	"github.com/velmart/velmart-backend/models"
	"gorm.io/gorm"
)

// BotContentRepositoryImpl implements BotContentRepository
type BotContentRepositoryImpl struct {
	*BaseRepository[models.BotContent, models.BotContentFilter]
}

// NewBotContentRepository creates a new bot content repository
func NewBotContentRepository(db *gorm.DB) BotContentRepository {
	return &BotContentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.BotContent, models.BotContentFilter](db),
	}
}

func (r *BotContentRepositoryImpl) ByKey(ctx context.Context, key string) (*models.BotContent, error) {
	db := r.getDB(ctx)
	var content models.BotContent
	if err := db.Where("key = ?", key).Last(&content).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &content, nil
}

func (r *BotContentRepositoryImpl) List(ctx context.Context) ([]*models.BotContent, error) {
	db := r.getDB(ctx)
	var contents []*models.BotContent
	if err := db.Order("key ASC").Find(&contents).Error; err != nil {
		return nil, err
	}
	return contents, nil
}
