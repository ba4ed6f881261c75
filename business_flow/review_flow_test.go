package businessflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmart/velmart-backend/app/dto"
	"github.com/velmart/velmart-backend/models"
	"github.com/velmart/velmart-backend/repository"
)

type fakeReviewRepo struct {
	repository.ReviewRepository
	saved []*models.Review
	stats *models.ReviewStats
}

func (f *fakeReviewRepo) SaveBatch(ctx context.Context, reviews []*models.Review) error {
	f.saved = append(f.saved, reviews...)
	return nil
}

func (f *fakeReviewRepo) StatsByPositionID(ctx context.Context, positionID uint) (*models.ReviewStats, error) {
	return f.stats, nil
}

type fakePositionRepo struct {
	repository.PositionRepository
	known map[uint]bool
}

func (f *fakePositionRepo) ByID(ctx context.Context, id uint) (*models.Position, error) {
	if !f.known[id] {
		return nil, nil
	}
	return &models.Position{ID: id, Name: "Spot"}, nil
}

func TestCreateReviewsValidation(t *testing.T) {
	positions := &fakePositionRepo{known: map[uint]bool{1: true}}

	tests := []struct {
		name    string
		reviews []dto.ReviewItem
		wantErr error
	}{
		{
			name:    "empty batch",
			reviews: nil,
			wantErr: ErrNoReviewsProvided,
		},
		{
			name:    "rating below range",
			reviews: []dto.ReviewItem{{PositionID: 1, TelegramID: 5, Rating: 0}},
			wantErr: ErrInvalidRating,
		},
		{
			name:    "rating above range",
			reviews: []dto.ReviewItem{{PositionID: 1, TelegramID: 5, Rating: 6}},
			wantErr: ErrInvalidRating,
		},
		{
			name:    "missing position",
			reviews: []dto.ReviewItem{{TelegramID: 5, Rating: 4}},
			wantErr: ErrPositionIDRequired,
		},
		{
			name:    "unknown position",
			reviews: []dto.ReviewItem{{PositionID: 99, TelegramID: 5, Rating: 4}},
			wantErr: ErrPositionNotFound,
		},
		{
			name: "one bad entry rejects the whole batch",
			reviews: []dto.ReviewItem{
				{PositionID: 1, TelegramID: 5, Rating: 4},
				{PositionID: 1, TelegramID: 6, Rating: 9},
			},
			wantErr: ErrInvalidRating,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeReviewRepo{}
			flow := NewReviewFlow(repo, positions)

			_, err := flow.CreateReviews(context.Background(), &dto.CreateReviewsRequest{Reviews: tt.reviews}, nil)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.saved, "nothing may be written on a rejected batch")
		})
	}
}

func TestCreateReviewsBatch(t *testing.T) {
	repo := &fakeReviewRepo{}
	flow := NewReviewFlow(repo, &fakePositionRepo{known: map[uint]bool{1: true, 2: true}})

	out, err := flow.CreateReviews(context.Background(), &dto.CreateReviewsRequest{
		Reviews: []dto.ReviewItem{
			{PositionID: 1, TelegramID: 5, Rating: 4, Text: "good"},
			{PositionID: 2, TelegramID: 6, Rating: 5},
		},
	}, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, repo.saved, 2)
	assert.Equal(t, "good", repo.saved[0].Text)
	assert.Equal(t, 5, repo.saved[1].Rating)
}

func TestReviewStats(t *testing.T) {
	repo := &fakeReviewRepo{stats: &models.ReviewStats{Count: 4, AverageRating: 3.75}}
	flow := NewReviewFlow(repo, &fakePositionRepo{})

	stats, err := flow.Stats(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, uint(1), stats.PositionID)
	assert.Equal(t, int64(4), stats.Count)
	assert.InDelta(t, 3.75, stats.AverageRating, 0.0001)

	_, err = flow.Stats(context.Background(), 0, nil)
	assert.ErrorIs(t, err, ErrPositionIDRequired)
}
