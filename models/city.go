package models

import (
	"time"

	"gorm.io/gorm"
)

// City is a top-level geographic unit of the catalog.
type City struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Districts []District `gorm:"foreignKey:CityID" json:"districts,omitempty"`
}

// CityFilter represents filter criteria for city queries
type CityFilter struct {
	ID   *uint   `json:"id,omitempty"`
	Name *string `json:"name,omitempty"`
}

// District belongs to a city.
type District struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name   string `gorm:"type:varchar(255);not null" json:"name"`
	CityID uint   `gorm:"not null;index" json:"city_id"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	City City `gorm:"foreignKey:CityID;constraint:OnDelete:CASCADE" json:"city,omitempty"`
}

// DistrictFilter represents filter criteria for district queries
type DistrictFilter struct {
	ID     *uint   `json:"id,omitempty"`
	Name   *string `json:"name,omitempty"`
	CityID *uint   `json:"city_id,omitempty"`
}
