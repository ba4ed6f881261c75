package dto

// CreateInvoiceRequest is the body of POST /payment/crypto/invoice
type CreateInvoiceRequest struct {
	TelegramID int64 `json:"telegramId" validate:"required"`
	PositionID uint  `json:"positionId" validate:"required"`
}

// PositionSnapshotDTO is the frozen position projection inside a payment
type PositionSnapshotDTO struct {
	PositionID   uint    `json:"position_id"`
	PositionName string  `json:"position_name"`
	Price        float64 `json:"price"`
	ProductName  string  `json:"product_name"`
	Location     string  `json:"location"`
}

// PaymentDTO is the public projection of a payment record
type PaymentDTO struct {
	ID                uint                 `json:"id"`
	TelegramID        int64                `json:"telegram_id"`
	ClientID          *uint                `json:"client_id,omitempty"`
	PositionID        uint                 `json:"position_id"`
	Position          *PositionSnapshotDTO `json:"position,omitempty"`
	ProviderInvoiceID int64                `json:"provider_invoice_id"`
	Status            string               `json:"status"`
	PayURL            string               `json:"pay_url"`
	Asset             string               `json:"asset"`
	Amount            string               `json:"amount"`
	Description       string               `json:"description"`
	PurchaseCreated   bool                 `json:"purchase_created"`
	PaidAt            string               `json:"paid_at,omitempty"`
	ExpiresAt         string               `json:"expires_at,omitempty"`
	CreatedAt         string               `json:"created_at"`
}

// CreateInvoiceResponse pairs the stored payment with the provider's raw
// invoice object
type CreateInvoiceResponse struct {
	Payment PaymentDTO `json:"payment"`
	Invoice any        `json:"invoice"`
}

// WebhookInvoice is the invoice payload inside a provider webhook update
type WebhookInvoice struct {
	InvoiceID      int64  `json:"invoice_id"`
	Status         string `json:"status"`
	Asset          string `json:"asset"`
	Amount         string `json:"amount"`
	PayURL         string `json:"pay_url"`
	ExpirationDate string `json:"expiration_date"`
	PaidAt         string `json:"paid_at"`
}

// WebhookUpdate is the provider's webhook envelope
type WebhookUpdate struct {
	UpdateID    int64           `json:"update_id"`
	UpdateType  string          `json:"update_type"`
	RequestDate string          `json:"request_date"`
	Invoice     *WebhookInvoice `json:"invoice"`
}

// WebhookAck is the constant webhook response once the signature passed
type WebhookAck struct {
	OK bool `json:"ok"`
}

// PaymentExportQuery filters the admin payments export
type PaymentExportQuery struct {
	Status    string `query:"status" validate:"omitempty,oneof=active paid expired"`
	StartDate string `query:"start_date" validate:"omitempty"`
	EndDate   string `query:"end_date" validate:"omitempty"`
}
