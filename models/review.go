package models

import (
	"time"

	"gorm.io/gorm"
)

// Review is client feedback on a position. Reviews are imported in bulk
// from the bot and aggregated into per-position stats.
type Review struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	PositionID uint   `gorm:"not null;index" json:"position_id"`
	TelegramID int64  `gorm:"not null;index" json:"telegram_id"`
	Rating     int    `gorm:"not null" json:"rating"`
	Text       string `gorm:"type:text" json:"text"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Position Position `gorm:"foreignKey:PositionID;constraint:OnDelete:CASCADE" json:"position,omitempty"`
}

// ReviewFilter represents filter criteria for review queries
type ReviewFilter struct {
	ID         *uint  `json:"id,omitempty"`
	PositionID *uint  `json:"position_id,omitempty"`
	TelegramID *int64 `json:"telegram_id,omitempty"`
	Rating     *int   `json:"rating,omitempty"`
}

// ReviewStats is the aggregate projection for a position's reviews.
type ReviewStats struct {
	PositionID    uint    `json:"position_id"`
	Count         int64   `json:"count"`
	AverageRating float64 `json:"average_rating"`
}
