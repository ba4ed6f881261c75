package handlers

import (
	"context"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/velmart/velmart-backend/app/dto"
	businessflow "github.com/velmart/velmart-backend/business_flow"
	"github.com/velmart/velmart-backend/utils"
)

type MediaHandlerInterface interface {
	Serve(c fiber.Ctx) error
	Thumbnail(c fiber.Ctx) error
}

type MediaHandler struct {
	flow businessflow.MediaFlow
}

func NewMediaHandler(flow businessflow.MediaFlow) *MediaHandler {
	return &MediaHandler{flow: flow}
}

// Serve returns a stored image verbatim
func (h *MediaHandler) Serve(c fiber.Ctx) error {
	path := c.Params("*")
	contentType, data, err := h.flow.Read(h.requestCtx(c, "/api/v1/media"), path)
	if err != nil {
		return mapMediaErr(c, err)
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Status(fiber.StatusOK).Send(data)
}

// Thumbnail returns a downscaled JPEG of a stored image
func (h *MediaHandler) Thumbnail(c fiber.Ctx) error {
	path := c.Params("*")
	contentType, data, err := h.flow.Thumbnail(h.requestCtx(c, "/api/v1/media/thumb"), path)
	if err != nil {
		return mapMediaErr(c, err)
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Status(fiber.StatusOK).Send(data)
}

func (h *MediaHandler) requestCtx(c fiber.Ctx, endpoint string) context.Context {
	return context.WithValue(context.Background(), utils.EndpointKey, endpoint)
}

func mapMediaErr(c fiber.Ctx, err error) error {
	if os.IsNotExist(err) {
		return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{Success: false, Message: "Media not found", Error: dto.ErrorDetail{Code: "MEDIA_NOT_FOUND"}})
	}
	return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Media request failed", Error: dto.ErrorDetail{Code: "MEDIA_REQUEST_FAILED", Details: err.Error()}})
}
