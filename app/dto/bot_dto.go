// Package dto contains Data Transfer Objects for API request and response structures
package dto

// GetOrCreateClientRequest is the body of POST /bot/client
type GetOrCreateClientRequest struct {
	TelegramID int64  `json:"telegramId" validate:"required"`
	Username   string `json:"username" validate:"omitempty,max=255"`
	FirstName  string `json:"firstName" validate:"omitempty,max=255"`
	LastName   string `json:"lastName" validate:"omitempty,max=255"`
}

// ClientDTO is the public projection of a client
type ClientDTO struct {
	ID         uint    `json:"id"`
	TelegramID int64   `json:"telegram_id"`
	Username   string  `json:"username"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Balance    float64 `json:"balance"`
	CreatedAt  string  `json:"created_at"`
}

// BalanceDTO is the response of the balance endpoints
type BalanceDTO struct {
	TelegramID int64   `json:"telegram_id"`
	Balance    float64 `json:"balance"`
}

// AdjustBalanceRequest is the body of POST /bot/client/:telegramId/balance/adjust
type AdjustBalanceRequest struct {
	Amount float64 `json:"amount" validate:"required"`
}

// TestTopUpRequest is the body of POST /bot/client/:telegramId/balance/topup-test
type TestTopUpRequest struct {
	Amount float64 `json:"amount" validate:"omitempty,gt=0"`
}

// DirectPurchaseRequest is the body of POST /bot/purchase
type DirectPurchaseRequest struct {
	TelegramID int64 `json:"telegramId" validate:"required"`
	PositionID uint  `json:"positionId" validate:"required"`
}

// PurchaseDTO is one entry of a client's purchase history
type PurchaseDTO struct {
	ID                uint    `json:"id"`
	Source            string  `json:"source"`
	PositionID        uint    `json:"position_id"`
	PositionName      string  `json:"position_name"`
	Price             float64 `json:"price"`
	ProductName       string  `json:"product_name"`
	Location          string  `json:"location"`
	PurchaseDate      string  `json:"purchase_date"`
	PaymentID         *uint   `json:"payment_id,omitempty"`
	ProviderInvoiceID *int64  `json:"provider_invoice_id,omitempty"`
}

// DirectPurchaseResponse returns the purchase entry plus the remaining balance
type DirectPurchaseResponse struct {
	Purchase PurchaseDTO `json:"purchase"`
	Balance  float64     `json:"balance"`
}
