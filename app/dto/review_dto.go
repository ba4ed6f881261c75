package dto

// ReviewItem is a single review inside a bulk create request
type ReviewItem struct {
	PositionID uint   `json:"positionId" validate:"required"`
	TelegramID int64  `json:"telegramId" validate:"required"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	Text       string `json:"text" validate:"omitempty"`
}

// CreateReviewsRequest is the body of POST /review
type CreateReviewsRequest struct {
	Reviews []ReviewItem `json:"reviews" validate:"required,min=1,dive"`
}

// ReviewDTO is the public projection of a review
type ReviewDTO struct {
	ID         uint   `json:"id"`
	PositionID uint   `json:"position_id"`
	TelegramID int64  `json:"telegram_id"`
	Rating     int    `json:"rating"`
	Text       string `json:"text"`
	CreatedAt  string `json:"created_at"`
}

// ReviewStatsDTO aggregates reviews for a position
type ReviewStatsDTO struct {
	PositionID    uint    `json:"position_id"`
	Count         int64   `json:"count"`
	AverageRating float64 `json:"average_rating"`
}
