package models

import (
	"time"

	"gorm.io/gorm"
)

// Category groups products. A category cannot be deleted while products
// still reference it.
type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Products []Product `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

// CategoryFilter represents filter criteria for category queries
type CategoryFilter struct {
	ID   *uint   `json:"id,omitempty"`
	Name *string `json:"name,omitempty"`
}

// Product is a catalog item; its sellable variants are Positions.
type Product struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Image       string `gorm:"type:text" json:"image"`
	CategoryID  uint   `gorm:"not null;index" json:"category_id"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Category  Category   `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Positions []Position `gorm:"foreignKey:ProductID" json:"positions,omitempty"`
}

// ProductFilter represents filter criteria for product queries
type ProductFilter struct {
	ID         *uint   `json:"id,omitempty"`
	Name       *string `json:"name,omitempty"`
	CategoryID *uint   `json:"category_id,omitempty"`
}

// PositionType distinguishes how a position is fulfilled.
type PositionType string

const (
	PositionTypeInstant PositionType = "instant" // Pre-stocked, delivered immediately
	PositionTypeOrder   PositionType = "order"   // Fulfilled on demand
)

// Position is a sellable listing: a product at a location with a price.
// Payments reference positions but freeze a snapshot at invoice time, so
// positions stay freely editable and deletable.
type Position struct {
	ID         uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string       `gorm:"type:varchar(255);not null" json:"name"`
	Price      float64      `gorm:"type:numeric(18,6);not null" json:"price"`
	Location   string       `gorm:"type:varchar(255)" json:"location"`
	Type       PositionType `gorm:"type:varchar(20);not null;default:'instant'" json:"type"`
	ProductID  uint         `gorm:"not null;index" json:"product_id"`
	CityID     *uint        `gorm:"index" json:"city_id"`
	DistrictID *uint        `gorm:"index" json:"district_id"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Product  Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	City     *City     `gorm:"foreignKey:CityID" json:"city,omitempty"`
	District *District `gorm:"foreignKey:DistrictID" json:"district,omitempty"`
}

// PositionFilter represents filter criteria for position queries
type PositionFilter struct {
	ID         *uint         `json:"id,omitempty"`
	Name       *string       `json:"name,omitempty"`
	ProductID  *uint         `json:"product_id,omitempty"`
	CategoryID *uint         `json:"category_id,omitempty"`
	CityID     *uint         `json:"city_id,omitempty"`
	DistrictID *uint         `json:"district_id,omitempty"`
	Type       *PositionType `json:"type,omitempty"`
	MinPrice   *float64      `json:"min_price,omitempty"`
	MaxPrice   *float64      `json:"max_price,omitempty"`
}
