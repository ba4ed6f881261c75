// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/velmart/velmart-backend/app/dto"
	"github.com/velmart/velmart-backend/app/middleware"
	businessflow "github.com/velmart/velmart-backend/business_flow"
	"github.com/velmart/velmart-backend/config"
	"github.com/velmart/velmart-backend/utils"
)

// WebhookSignatureHeader is the provider's HMAC signature header.
const WebhookSignatureHeader = "crypto-pay-api-signature"

type PaymentHandlerInterface interface {
	CreateInvoice(c fiber.Ctx) error
	GetPayment(c fiber.Ctx) error
	Webhook(c fiber.Ctx) error
}

type PaymentHandler struct {
	flow      businessflow.PaymentFlow
	validator *validator.Validate
	cfg       *config.ProductionConfig
}

func NewPaymentHandler(flow businessflow.PaymentFlow, cfg *config.ProductionConfig) *PaymentHandler {
	return &PaymentHandler{flow: flow, validator: validator.New(), cfg: cfg}
}

// CreateInvoice creates a provider invoice for a catalog position
func (h *PaymentHandler) CreateInvoice(c fiber.Ctx) error {
	var req dto.CreateInvoiceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid request body", Error: dto.ErrorDetail{Code: "INVALID_REQUEST"}})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Validation failed", Error: dto.ErrorDetail{Code: "VALIDATION_ERROR", Details: err.Error()}})
	}
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, err := h.flow.CreateInvoice(h.requestCtx(c, "/api/v1/payment/crypto/invoice"), &req, meta)
	if err != nil {
		return mapPaymentErr(c, err)
	}
	middleware.CountInvoiceCreated()
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Invoice created", Data: resp})
}

// GetPayment returns a payment record, reconciling unpaid ones with the provider
func (h *PaymentHandler) GetPayment(c fiber.Ctx) error {
	paymentID, err := strconv.ParseUint(c.Params("paymentId"), 10, 32)
	if err != nil || paymentID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid payment id", Error: dto.ErrorDetail{Code: "INVALID_PAYMENT_ID"}})
	}
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, err := h.flow.GetPayment(h.requestCtx(c, "/api/v1/payment/"+c.Params("paymentId")), uint(paymentID), meta)
	if err != nil {
		return mapPaymentErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Payment", Data: resp})
}

// Webhook receives provider invoice updates. Once the signature verifies,
// the response is always {ok:true} so the provider stops retrying, even for
// invoices this system does not know.
func (h *PaymentHandler) Webhook(c fiber.Ctx) error {
	raw := c.Body()
	signature := c.Get(WebhookSignatureHeader)
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	err := h.flow.HandleWebhook(h.requestCtx(c, "/api/v1/payment/crypto/webhook"), raw, signature, meta)
	switch {
	case err == nil:
		middleware.CountWebhook("accepted")
		return c.Status(fiber.StatusOK).JSON(dto.WebhookAck{OK: true})
	case businessflow.IsWebhookSignatureMissing(err), businessflow.IsWebhookBodyMissing(err), businessflow.IsWebhookMalformed(err):
		middleware.CountWebhook("rejected")
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Bad webhook request", Error: dto.ErrorDetail{Code: "WEBHOOK_BAD_REQUEST"}})
	case businessflow.IsWebhookSignatureInvalid(err):
		middleware.CountWebhook("rejected")
		return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{Success: false, Message: "Invalid signature", Error: dto.ErrorDetail{Code: "WEBHOOK_FORBIDDEN"}})
	case businessflow.IsProviderNotConfigured(err):
		middleware.CountWebhook("error")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{Success: false, Message: "Provider not configured", Error: dto.ErrorDetail{Code: "PROVIDER_NOT_CONFIGURED"}})
	default:
		middleware.CountWebhook("error")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{Success: false, Message: "Webhook processing failed", Error: dto.ErrorDetail{Code: "WEBHOOK_FAILED"}})
	}
}

func (h *PaymentHandler) requestCtx(c fiber.Ctx, endpoint string) context.Context {
	return context.WithValue(context.Background(), utils.EndpointKey, endpoint)
}

func mapPaymentErr(c fiber.Ctx, err error) error {
	switch {
	case businessflow.IsTelegramIDRequired(err), businessflow.IsPositionIDRequired(err):
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Validation failed", Error: dto.ErrorDetail{Code: "VALIDATION_ERROR", Details: err.Error()}})
	case businessflow.IsClientNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{Success: false, Message: "Client not found", Error: dto.ErrorDetail{Code: "CLIENT_NOT_FOUND"}})
	case businessflow.IsPositionNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{Success: false, Message: "Position not found", Error: dto.ErrorDetail{Code: "POSITION_NOT_FOUND"}})
	case businessflow.IsPaymentNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{Success: false, Message: "Payment not found", Error: dto.ErrorDetail{Code: "PAYMENT_NOT_FOUND"}})
	case businessflow.IsInvalidPrice(err), businessflow.IsZeroAdjustment(err):
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Position price is invalid", Error: dto.ErrorDetail{Code: "INVALID_PRICE"}})
	case businessflow.IsProviderNotConfigured(err):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{Success: false, Message: "Payment provider not configured", Error: dto.ErrorDetail{Code: "PROVIDER_NOT_CONFIGURED"}})
	case businessflow.IsProviderError(err):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{Success: false, Message: "Payment provider call failed", Error: dto.ErrorDetail{Code: "PROVIDER_ERROR"}})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{Success: false, Message: "Payment operation failed", Error: dto.ErrorDetail{Code: "PAYMENT_OPERATION_FAILED", Details: err.Error()}})
	}
}
