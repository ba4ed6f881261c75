// Package businessflow contains the core business logic and use cases for review workflows
package businessflow

import (
	"context"
	"time"

	"github.com/velmart/velmart-backend/app/dto"
	"github.com/velmart/velmart-backend/models"
	"github.com/velmart/velmart-backend/repository"
)

// ReviewFlow handles bulk review ingestion and per-position aggregates.
type ReviewFlow interface {
	CreateReviews(ctx context.Context, req *dto.CreateReviewsRequest, metadata *ClientMetadata) ([]dto.ReviewDTO, error)
	ListByPosition(ctx context.Context, positionID uint, page, limit int, metadata *ClientMetadata) ([]dto.ReviewDTO, error)
	Stats(ctx context.Context, positionID uint, metadata *ClientMetadata) (*dto.ReviewStatsDTO, error)
}

// ReviewFlowImpl implements ReviewFlow
type ReviewFlowImpl struct {
	reviewRepo   repository.ReviewRepository
	positionRepo repository.PositionRepository
}

func NewReviewFlow(reviewRepo repository.ReviewRepository, positionRepo repository.PositionRepository) ReviewFlow {
	return &ReviewFlowImpl{reviewRepo: reviewRepo, positionRepo: positionRepo}
}

// CreateReviews validates and inserts a batch. The batch is all-or-nothing:
// one bad entry rejects the whole request before anything is written.
func (f *ReviewFlowImpl) CreateReviews(ctx context.Context, req *dto.CreateReviewsRequest, metadata *ClientMetadata) ([]dto.ReviewDTO, error) {
	if len(req.Reviews) == 0 {
		return nil, ErrNoReviewsProvided
	}

	reviews := make([]*models.Review, 0, len(req.Reviews))
	for _, item := range req.Reviews {
		if item.Rating < 1 || item.Rating > 5 {
			return nil, ErrInvalidRating
		}
		if item.PositionID == 0 {
			return nil, ErrPositionIDRequired
		}
		if item.TelegramID == 0 {
			return nil, ErrTelegramIDRequired
		}
		position, err := f.positionRepo.ByID(ctx, item.PositionID)
		if err != nil {
			return nil, NewBusinessError("POSITION_LOOKUP_FAILED", "Failed to look up position", err)
		}
		if position == nil {
			return nil, ErrPositionNotFound
		}
		reviews = append(reviews, &models.Review{
			PositionID: item.PositionID,
			TelegramID: item.TelegramID,
			Rating:     item.Rating,
			Text:       item.Text,
		})
	}

	if err := f.reviewRepo.SaveBatch(ctx, reviews); err != nil {
		return nil, NewBusinessError("REVIEW_CREATE_FAILED", "Failed to save reviews", err)
	}

	out := make([]dto.ReviewDTO, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, toReviewDTO(r))
	}
	return out, nil
}

func (f *ReviewFlowImpl) ListByPosition(ctx context.Context, positionID uint, page, limit int, metadata *ClientMetadata) ([]dto.ReviewDTO, error) {
	if positionID == 0 {
		return nil, ErrPositionIDRequired
	}
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return nil, ErrInvalidPage
	}
	if limit == 0 {
		limit = 20
	}
	if limit < 1 || limit > 100 {
		return nil, ErrInvalidPageSize
	}

	reviews, err := f.reviewRepo.ByPositionID(ctx, positionID, limit, (page-1)*limit)
	if err != nil {
		return nil, NewBusinessError("REVIEW_LIST_FAILED", "Failed to list reviews", err)
	}
	out := make([]dto.ReviewDTO, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, toReviewDTO(r))
	}
	return out, nil
}

func (f *ReviewFlowImpl) Stats(ctx context.Context, positionID uint, metadata *ClientMetadata) (*dto.ReviewStatsDTO, error) {
	if positionID == 0 {
		return nil, ErrPositionIDRequired
	}
	stats, err := f.reviewRepo.StatsByPositionID(ctx, positionID)
	if err != nil {
		return nil, NewBusinessError("REVIEW_STATS_FAILED", "Failed to aggregate reviews", err)
	}
	return &dto.ReviewStatsDTO{
		PositionID:    positionID,
		Count:         stats.Count,
		AverageRating: stats.AverageRating,
	}, nil
}

func toReviewDTO(r *models.Review) dto.ReviewDTO {
	return dto.ReviewDTO{
		ID:         r.ID,
		PositionID: r.PositionID,
		TelegramID: r.TelegramID,
		Rating:     r.Rating,
		Text:       r.Text,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
	}
}
