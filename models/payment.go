package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentStatus mirrors the invoice states reported by the Crypto Pay
// provider. Values are stored verbatim from provider responses.
type PaymentStatus string

const (
	PaymentStatusActive  PaymentStatus = "active"  // Invoice created, waiting for payment
	PaymentStatusPaid    PaymentStatus = "paid"    // Invoice paid by the client
	PaymentStatusExpired PaymentStatus = "expired" // Invoice expired unpaid
)

// PositionSnapshot is a denormalized copy of the position and product taken
// at invoice-creation time. The live Position may change or be deleted
// afterwards; paid invoices must still materialize against the price and
// name the client saw.
type PositionSnapshot struct {
	PositionID   uint    `json:"position_id"`
	PositionName string  `json:"position_name"`
	Price        float64 `json:"price"`
	ProductName  string  `json:"product_name"`
	Location     string  `json:"location"`
}

// Payment represents one invoice created with the payment provider.
// Rows are never deleted; reconciliation (poll or webhook) only updates
// status fields and flips PurchaseCreated at most once.
type Payment struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	// Owner. ClientID is resolved at creation time when the client exists;
	// TelegramID is always recorded so materialization can fall back to it.
	TelegramID int64 `gorm:"not null;index" json:"telegram_id"`
	ClientID   *uint `gorm:"index" json:"client_id"`

	// Item being purchased plus its frozen snapshot.
	PositionID       uint            `gorm:"not null;index" json:"position_id"`
	PositionSnapshot json.RawMessage `gorm:"type:jsonb" json:"position_snapshot"`

	// Provider-side invoice data.
	ProviderInvoiceID int64         `gorm:"not null;uniqueIndex" json:"provider_invoice_id"`
	Status            PaymentStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	PayURL            string        `gorm:"type:text" json:"pay_url"`
	Asset             string        `gorm:"type:varchar(10)" json:"asset"`
	Amount            string        `gorm:"type:varchar(64)" json:"amount"`
	Description       string        `gorm:"type:text" json:"description"`
	Payload           string        `gorm:"type:text" json:"payload"`

	// Idempotence guard: transitions false -> true at most once and only
	// when Status is paid.
	PurchaseCreated bool `gorm:"not null;default:false;index" json:"purchase_created"`

	PaidAt    *time.Time `gorm:"index" json:"paid_at"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	Client   *Client  `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Position Position `gorm:"foreignKey:PositionID" json:"position,omitempty"`
}

// BeforeCreate ensures UUID is set
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	return nil
}

// IsPaid returns true if the provider reported the invoice as paid
func (p *Payment) IsPaid() bool {
	return p.Status == PaymentStatusPaid
}

// Snapshot decodes the frozen position snapshot, returning nil when none
// was ever recorded.
func (p *Payment) Snapshot() (*PositionSnapshot, error) {
	if len(p.PositionSnapshot) == 0 {
		return nil, nil
	}
	var snap PositionSnapshot
	if err := json.Unmarshal(p.PositionSnapshot, &snap); err != nil {
		return nil, err
	}
	if snap.PositionID == 0 && snap.PositionName == "" {
		return nil, nil
	}
	return &snap, nil
}

// SetSnapshot encodes and stores the frozen position snapshot.
func (p *Payment) SetSnapshot(snap *PositionSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	p.PositionSnapshot = raw
	return nil
}

// PaymentFilter represents filter criteria for payment queries
type PaymentFilter struct {
	ID                *uint          `json:"id,omitempty"`
	UUID              *uuid.UUID     `json:"uuid,omitempty"`
	TelegramID        *int64         `json:"telegram_id,omitempty"`
	ClientID          *uint          `json:"client_id,omitempty"`
	PositionID        *uint          `json:"position_id,omitempty"`
	ProviderInvoiceID *int64         `json:"provider_invoice_id,omitempty"`
	Status            *PaymentStatus `json:"status,omitempty"`
	PurchaseCreated   *bool          `json:"purchase_created,omitempty"`
	CreatedAfter      *time.Time     `json:"created_after,omitempty"`
	CreatedBefore     *time.Time     `json:"created_before,omitempty"`
}
