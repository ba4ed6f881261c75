package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client represents a shopper identified by the messaging platform.
// TelegramID is immutable once the row exists; profile fields are refreshed
// on every interaction.
type Client struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	TelegramID int64  `gorm:"not null;uniqueIndex" json:"telegram_id"`
	Username   string `gorm:"type:varchar(255)" json:"username"`
	FirstName  string `gorm:"type:varchar(255)" json:"first_name"`
	LastName   string `gorm:"type:varchar(255)" json:"last_name"`

	// Balance is the single-currency spendable balance. It must never go
	// negative; all mutations happen through the client flow inside a
	// transaction.
	Balance float64 `gorm:"type:numeric(18,6);not null;default:0" json:"balance"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	Purchases []Purchase `gorm:"foreignKey:ClientID" json:"purchases,omitempty"`
	Payments  []Payment  `gorm:"foreignKey:ClientID" json:"payments,omitempty"`
}

// BeforeCreate ensures UUID is set
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	return nil
}

// ClientFilter represents filter criteria for client queries
type ClientFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	TelegramID    *int64     `json:"telegram_id,omitempty"`
	Username      *string    `json:"username,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
