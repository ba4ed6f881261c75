package handlers

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/velmart/velmart-backend/app/dto"
	businessflow "github.com/velmart/velmart-backend/business_flow"
	"github.com/velmart/velmart-backend/utils"
)

type BotHandlerInterface interface {
	GetOrCreateClient(c fiber.Ctx) error
	GetBalance(c fiber.Ctx) error
	AdjustBalance(c fiber.Ctx) error
	TestTopUp(c fiber.Ctx) error
	DirectPurchase(c fiber.Ctx) error
	GetPurchases(c fiber.Ctx) error
}

type BotHandler struct {
	flow      businessflow.ClientFlow
	validator *validator.Validate
}

func NewBotHandler(flow businessflow.ClientFlow) *BotHandler {
	return &BotHandler{flow: flow, validator: validator.New()}
}

// GetOrCreateClient registers or refreshes a bot client
func (h *BotHandler) GetOrCreateClient(c fiber.Ctx) error {
	var req dto.GetOrCreateClientRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid request body", Error: dto.ErrorDetail{Code: "INVALID_REQUEST"}})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Validation failed", Error: dto.ErrorDetail{Code: "VALIDATION_ERROR", Details: err.Error()}})
	}
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, err := h.flow.GetOrCreateClient(h.requestCtx(c, "/api/v1/bot/client"), &req, meta)
	if err != nil {
		return mapBotErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Client", Data: resp})
}

// GetBalance returns (and lazily creates) a client's balance
func (h *BotHandler) GetBalance(c fiber.Ctx) error {
	telegramID, ok := parseTelegramID(c)
	if !ok {
		return badTelegramID(c)
	}
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, ferr := h.flow.GetBalance(h.requestCtx(c, "/api/v1/bot/client/balance"), telegramID, meta)
	if ferr != nil {
		return mapBotErr(c, ferr)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Balance", Data: resp})
}

// AdjustBalance applies a signed balance delta
func (h *BotHandler) AdjustBalance(c fiber.Ctx) error {
	telegramID, ok := parseTelegramID(c)
	if !ok {
		return badTelegramID(c)
	}
	var req dto.AdjustBalanceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid request body", Error: dto.ErrorDetail{Code: "INVALID_REQUEST"}})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Validation failed", Error: dto.ErrorDetail{Code: "VALIDATION_ERROR", Details: err.Error()}})
	}
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, ferr := h.flow.AdjustBalance(h.requestCtx(c, "/api/v1/bot/client/balance/adjust"), telegramID, &req, meta)
	if ferr != nil {
		return mapBotErr(c, ferr)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Balance adjusted", Data: resp})
}

// TestTopUp credits the default test amount
func (h *BotHandler) TestTopUp(c fiber.Ctx) error {
	telegramID, ok := parseTelegramID(c)
	if !ok {
		return badTelegramID(c)
	}
	var req dto.TestTopUpRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid request body", Error: dto.ErrorDetail{Code: "INVALID_REQUEST"}})
		}
	}
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, ferr := h.flow.TestTopUp(h.requestCtx(c, "/api/v1/bot/client/balance/topup-test"), telegramID, &req, meta)
	if ferr != nil {
		return mapBotErr(c, ferr)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Balance credited", Data: resp})
}

// DirectPurchase buys a position from the client's balance
func (h *BotHandler) DirectPurchase(c fiber.Ctx) error {
	var req dto.DirectPurchaseRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid request body", Error: dto.ErrorDetail{Code: "INVALID_REQUEST"}})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Validation failed", Error: dto.ErrorDetail{Code: "VALIDATION_ERROR", Details: err.Error()}})
	}
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, err := h.flow.DirectPurchase(h.requestCtx(c, "/api/v1/bot/purchase"), &req, meta)
	if err != nil {
		return mapBotErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Purchase completed", Data: resp})
}

// GetPurchases returns the client's purchase history
func (h *BotHandler) GetPurchases(c fiber.Ctx) error {
	telegramID, ok := parseTelegramID(c)
	if !ok {
		return badTelegramID(c)
	}
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, ferr := h.flow.GetPurchases(h.requestCtx(c, "/api/v1/bot/client/purchases"), telegramID, meta)
	if ferr != nil {
		return mapBotErr(c, ferr)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Purchases", Data: resp})
}

func parseTelegramID(c fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("telegramId"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func badTelegramID(c fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid telegram id", Error: dto.ErrorDetail{Code: "INVALID_TELEGRAM_ID"}})
}

func (h *BotHandler) requestCtx(c fiber.Ctx, endpoint string) context.Context {
	return context.WithValue(context.Background(), utils.EndpointKey, endpoint)
}

func mapBotErr(c fiber.Ctx, err error) error {
	switch {
	case businessflow.IsTelegramIDRequired(err), businessflow.IsPositionIDRequired(err), businessflow.IsZeroAdjustment(err):
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Validation failed", Error: dto.ErrorDetail{Code: "VALIDATION_ERROR", Details: err.Error()}})
	case businessflow.IsClientNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{Success: false, Message: "Client not found", Error: dto.ErrorDetail{Code: "CLIENT_NOT_FOUND"}})
	case businessflow.IsPositionNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{Success: false, Message: "Position not found", Error: dto.ErrorDetail{Code: "POSITION_NOT_FOUND"}})
	case businessflow.IsInsufficientBalance(err):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.APIResponse{Success: false, Message: "Insufficient balance", Error: dto.ErrorDetail{Code: "INSUFFICIENT_BALANCE"}})
	case businessflow.IsInvalidPrice(err):
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Position price is invalid", Error: dto.ErrorDetail{Code: "INVALID_PRICE"}})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{Success: false, Message: "Bot operation failed", Error: dto.ErrorDetail{Code: "BOT_OPERATION_FAILED", Details: err.Error()}})
	}
}
