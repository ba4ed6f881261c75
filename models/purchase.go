package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurchaseSource tags how a purchase entered the client's history.
type PurchaseSource string

const (
	PurchaseSourceDirect          PurchaseSource = "direct"           // Balance deduction initiated by the bot
	PurchaseSourceProviderPayment PurchaseSource = "provider-payment" // Materialized from a paid provider invoice
)

// Purchase is one entry in a client's append-only purchase history. Both
// entry paths (direct balance deduction and provider-payment
// materialization) write through the same flow; PaymentID is set only on
// the provider path and is unique, which backs the exactly-once guarantee.
type Purchase struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	ClientID uint           `gorm:"not null;index" json:"client_id"`
	Source   PurchaseSource `gorm:"type:varchar(20);not null;index" json:"source"`

	// Denormalized position fields, frozen at purchase time.
	PositionID   uint    `gorm:"not null;index" json:"position_id"`
	PositionName string  `gorm:"type:varchar(255);not null" json:"position_name"`
	Price        float64 `gorm:"type:numeric(18,6);not null" json:"price"`
	ProductName  string  `gorm:"type:varchar(255);not null" json:"product_name"`
	Location     string  `gorm:"type:varchar(255)" json:"location"`

	PurchaseDate time.Time `gorm:"not null;index" json:"purchase_date"`

	// Provider-payment correlation. Nil on direct purchases.
	PaymentID         *uint  `gorm:"uniqueIndex" json:"payment_id"`
	ProviderInvoiceID *int64 `gorm:"index" json:"provider_invoice_id"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	Client  Client   `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"client,omitempty"`
	Payment *Payment `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
}

// BeforeCreate ensures UUID is set
func (p *Purchase) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	return nil
}

// PurchaseFilter represents filter criteria for purchase queries
type PurchaseFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	ClientID      *uint           `json:"client_id,omitempty"`
	Source        *PurchaseSource `json:"source,omitempty"`
	PositionID    *uint           `json:"position_id,omitempty"`
	PaymentID     *uint           `json:"payment_id,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
}
