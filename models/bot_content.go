package models

import (
	"time"

	"gorm.io/gorm"
)

// BotContent is a keyed text/image block served to the chat bot (greeting,
// help text, banners). Upserted by key from the admin panel.
type BotContent struct {
	ID    uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Key   string `gorm:"type:varchar(255);not null;uniqueIndex" json:"key"`
	Text  string `gorm:"type:text" json:"text"`
	Image string `gorm:"type:text" json:"image"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BotContentFilter represents filter criteria for bot content queries
type BotContentFilter struct {
	ID  *uint   `json:"id,omitempty"`
	Key *string `json:"key,omitempty"`
}
