package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/velmart/velmart-backend/app/dto"
	businessflow "github.com/velmart/velmart-backend/business_flow"
	"github.com/velmart/velmart-backend/utils"
)

type ContentHandlerInterface interface {
	Upsert(c fiber.Ctx) error
	GetByKey(c fiber.Ctx) error
	List(c fiber.Ctx) error
}

type ContentHandler struct {
	flow      businessflow.ContentFlow
	media     businessflow.MediaFlow
	validator *validator.Validate
}

func NewContentHandler(flow businessflow.ContentFlow, media businessflow.MediaFlow) *ContentHandler {
	return &ContentHandler{flow: flow, media: media, validator: validator.New()}
}

// Upsert creates or replaces a content block. Accepts a multipart form with
// an optional image file.
func (h *ContentHandler) Upsert(c fiber.Ctx) error {
	var req dto.UpsertContentRequest
	if err := c.Bind().Form(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid request body", Error: dto.ErrorDetail{Code: "INVALID_REQUEST"}})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Validation failed", Error: dto.ErrorDetail{Code: "VALIDATION_ERROR", Details: err.Error()}})
	}

	imagePath := ""
	if fileHeader, err := c.FormFile("image"); err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid image file", Error: dto.ErrorDetail{Code: "INVALID_FILE"}})
		}
		defer file.Close()
		imagePath, err = h.media.SaveImage(h.requestCtx(c, "/api/v1/content"), file, fileHeader.Filename, h.meta(c))
		if err != nil {
			return mapContentErr(c, err)
		}
	}

	resp, err := h.flow.Upsert(h.requestCtx(c, "/api/v1/content"), &req, imagePath, h.meta(c))
	if err != nil {
		return mapContentErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Content saved", Data: resp})
}

// GetByKey returns one content block
func (h *ContentHandler) GetByKey(c fiber.Ctx) error {
	key := c.Params("key")
	resp, err := h.flow.GetByKey(h.requestCtx(c, "/api/v1/content/"+key), key, h.meta(c))
	if err != nil {
		return mapContentErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Content", Data: resp})
}

// List returns all content blocks
func (h *ContentHandler) List(c fiber.Ctx) error {
	resp, err := h.flow.List(h.requestCtx(c, "/api/v1/content"), h.meta(c))
	if err != nil {
		return mapContentErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Content blocks", Data: resp})
}

func (h *ContentHandler) meta(c fiber.Ctx) *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
}

func (h *ContentHandler) requestCtx(c fiber.Ctx, endpoint string) context.Context {
	return context.WithValue(context.Background(), utils.EndpointKey, endpoint)
}

func mapContentErr(c fiber.Ctx, err error) error {
	switch {
	case businessflow.IsContentKeyRequired(err):
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Content key is required", Error: dto.ErrorDetail{Code: "VALIDATION_ERROR"}})
	case businessflow.IsContentNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{Success: false, Message: "Content not found", Error: dto.ErrorDetail{Code: "CONTENT_NOT_FOUND"}})
	case businessflow.IsUnsupportedImage(err):
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Unsupported image type", Error: dto.ErrorDetail{Code: "INVALID_FILE_TYPE"}})
	case businessflow.IsImageTooLarge(err):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(dto.APIResponse{Success: false, Message: "Image exceeds the size limit", Error: dto.ErrorDetail{Code: "FILE_TOO_LARGE"}})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{Success: false, Message: "Content operation failed", Error: dto.ErrorDetail{Code: "CONTENT_OPERATION_FAILED", Details: err.Error()}})
	}
}
