package handlers

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/velmart/velmart-backend/app/dto"
	businessflow "github.com/velmart/velmart-backend/business_flow"
	"github.com/velmart/velmart-backend/utils"
)

type AdminHandlerInterface interface {
	InitCaptcha(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Refresh(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	Check(c fiber.Ctx) error
	ExportPayments(c fiber.Ctx) error
}

type AdminHandler struct {
	authFlow   businessflow.AdminAuthFlow
	exportFlow businessflow.AdminExportFlow
	validator  *validator.Validate
}

func NewAdminHandler(authFlow businessflow.AdminAuthFlow, exportFlow businessflow.AdminExportFlow) *AdminHandler {
	return &AdminHandler{authFlow: authFlow, exportFlow: exportFlow, validator: validator.New()}
}

// InitCaptcha issues a rotate captcha challenge for the login form
func (h *AdminHandler) InitCaptcha(c fiber.Ctx) error {
	resp, err := h.authFlow.InitCaptcha(h.requestCtx(c, "/api/v1/admin/captcha/init"))
	if err != nil {
		return mapAdminErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Captcha challenge", Data: resp})
}

// Login verifies captcha plus credentials and issues a token pair
func (h *AdminHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid request body", Error: dto.ErrorDetail{Code: "INVALID_REQUEST"}})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Validation failed", Error: dto.ErrorDetail{Code: "VALIDATION_ERROR", Details: err.Error()}})
	}
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, err := h.authFlow.Login(h.requestCtx(c, "/api/v1/admin/login"), &req, meta)
	if err != nil {
		return mapAdminErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Login successful", Data: resp})
}

// Refresh exchanges a refresh token for a new pair
func (h *AdminHandler) Refresh(c fiber.Ctx) error {
	var req dto.AdminRefreshRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid request body", Error: dto.ErrorDetail{Code: "INVALID_REQUEST"}})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Validation failed", Error: dto.ErrorDetail{Code: "VALIDATION_ERROR", Details: err.Error()}})
	}
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, err := h.authFlow.Refresh(h.requestCtx(c, "/api/v1/admin/refresh"), &req, meta)
	if err != nil {
		return mapAdminErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Tokens refreshed", Data: resp})
}

// Logout revokes the presented access token
func (h *AdminHandler) Logout(c fiber.Ctx) error {
	token := bearerToken(c)
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if err := h.authFlow.Logout(h.requestCtx(c, "/api/v1/admin/logout"), token, meta); err != nil {
		return mapAdminErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Logged out"})
}

// Check confirms the access token is still valid. The auth middleware does
// the actual validation; reaching here means the session is live.
func (h *AdminHandler) Check(c fiber.Ctx) error {
	adminID, _ := c.Locals("admin_id").(uint)
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Session valid", Data: fiber.Map{"admin_id": adminID}})
}

// ExportPayments streams the payments workbook
func (h *AdminHandler) ExportPayments(c fiber.Ctx) error {
	var q dto.PaymentExportQuery
	if err := c.Bind().Query(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid query", Error: dto.ErrorDetail{Code: "INVALID_REQUEST"}})
	}
	if err := h.validator.Struct(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Validation failed", Error: dto.ErrorDetail{Code: "VALIDATION_ERROR", Details: err.Error()}})
	}
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	filename, data, err := h.exportFlow.ExportPayments(h.requestCtx(c, "/api/v1/admin/payments/export"), &q, meta)
	if err != nil {
		return mapAdminErr(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(data)
}

func bearerToken(c fiber.Ctx) string {
	auth := c.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func (h *AdminHandler) requestCtx(c fiber.Ctx, endpoint string) context.Context {
	return context.WithValue(context.Background(), utils.EndpointKey, endpoint)
}

func mapAdminErr(c fiber.Ctx, err error) error {
	switch {
	case businessflow.IsCaptchaFailed(err):
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Captcha validation failed", Error: dto.ErrorDetail{Code: "CAPTCHA_INVALID"}})
	case businessflow.IsAdminNotFound(err), businessflow.IsIncorrectPassword(err):
		// Same response for both so login probing learns nothing.
		return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{Success: false, Message: "Invalid credentials", Error: dto.ErrorDetail{Code: "INVALID_CREDENTIALS"}})
	case businessflow.IsAdminInactive(err):
		return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{Success: false, Message: "Account inactive", Error: dto.ErrorDetail{Code: "ACCOUNT_INACTIVE"}})
	case businessflow.IsStartDateAfterEnd(err):
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid date range", Error: dto.ErrorDetail{Code: "INVALID_DATE_RANGE"}})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{Success: false, Message: "Admin operation failed", Error: dto.ErrorDetail{Code: "ADMIN_OPERATION_FAILED", Details: err.Error()}})
	}
}
