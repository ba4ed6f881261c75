package repository

import (
	"context"

	"github.com/velmart/velmart-backend/models"
	"gorm.io/gorm"
)

// ReviewRepositoryImpl implements ReviewRepository
type ReviewRepositoryImpl struct {
	*BaseRepository[models.Review, models.ReviewFilter]
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &ReviewRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Review, models.ReviewFilter](db),
	}
}

func (r *ReviewRepositoryImpl) ByPositionID(ctx context.Context, positionID uint, limit, offset int) ([]*models.Review, error) {
	db := r.getDB(ctx)
	q := db.Where("position_id = ?", positionID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var reviews []*models.Review
	if err := q.Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *ReviewRepositoryImpl) StatsByPositionID(ctx context.Context, positionID uint) (*models.ReviewStats, error) {
	db := r.getDB(ctx)
	stats := &models.ReviewStats{PositionID: positionID}
	row := db.Model(&models.Review{}).
		Select("COUNT(*), COALESCE(AVG(rating), 0)").
		Where("position_id = ?", positionID).
		Row()
	if err := row.Scan(&stats.Count, &stats.AverageRating); err != nil {
		return nil, err
	}
	return stats, nil
}
