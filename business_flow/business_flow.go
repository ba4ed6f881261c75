// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/velmart/velmart-backend/app/dto"
	"github.com/velmart/velmart-backend/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds request-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToClientDTO converts a client model to its public projection
func ToClientDTO(client models.Client) dto.ClientDTO {
	return dto.ClientDTO{
		ID:         client.ID,
		TelegramID: client.TelegramID,
		Username:   client.Username,
		FirstName:  client.FirstName,
		LastName:   client.LastName,
		Balance:    client.Balance,
		CreatedAt:  client.CreatedAt.Format(time.RFC3339),
	}
}

// ToPurchaseDTO converts a purchase model to its public projection
func ToPurchaseDTO(purchase models.Purchase) dto.PurchaseDTO {
	return dto.PurchaseDTO{
		ID:                purchase.ID,
		Source:            string(purchase.Source),
		PositionID:        purchase.PositionID,
		PositionName:      purchase.PositionName,
		Price:             purchase.Price,
		ProductName:       purchase.ProductName,
		Location:          purchase.Location,
		PurchaseDate:      purchase.PurchaseDate.Format(time.RFC3339),
		PaymentID:         purchase.PaymentID,
		ProviderInvoiceID: purchase.ProviderInvoiceID,
	}
}

// ToPaymentDTO converts a payment model to its public projection, including
// the frozen position snapshot when one was recorded.
func ToPaymentDTO(payment models.Payment) dto.PaymentDTO {
	d := dto.PaymentDTO{
		ID:                payment.ID,
		TelegramID:        payment.TelegramID,
		ClientID:          payment.ClientID,
		PositionID:        payment.PositionID,
		ProviderInvoiceID: payment.ProviderInvoiceID,
		Status:            string(payment.Status),
		PayURL:            payment.PayURL,
		Asset:             payment.Asset,
		Amount:            payment.Amount,
		Description:       payment.Description,
		PurchaseCreated:   payment.PurchaseCreated,
		CreatedAt:         payment.CreatedAt.Format(time.RFC3339),
	}
	if payment.PaidAt != nil {
		d.PaidAt = payment.PaidAt.Format(time.RFC3339)
	}
	if payment.ExpiresAt != nil {
		d.ExpiresAt = payment.ExpiresAt.Format(time.RFC3339)
	}
	if snap, err := payment.Snapshot(); err == nil && snap != nil {
		d.Position = &dto.PositionSnapshotDTO{
			PositionID:   snap.PositionID,
			PositionName: snap.PositionName,
			Price:        snap.Price,
			ProductName:  snap.ProductName,
			Location:     snap.Location,
		}
	}
	return d
}
