package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/velmart/velmart-backend/app/dto"
	businessflow "github.com/velmart/velmart-backend/business_flow"
	"github.com/velmart/velmart-backend/utils"
)

type ReviewHandlerInterface interface {
	CreateReviews(c fiber.Ctx) error
	ListByPosition(c fiber.Ctx) error
	Stats(c fiber.Ctx) error
}

type ReviewHandler struct {
	flow      businessflow.ReviewFlow
	validator *validator.Validate
}

func NewReviewHandler(flow businessflow.ReviewFlow) *ReviewHandler {
	return &ReviewHandler{flow: flow, validator: validator.New()}
}

// CreateReviews inserts a batch of reviews
func (h *ReviewHandler) CreateReviews(c fiber.Ctx) error {
	var req dto.CreateReviewsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid request body", Error: dto.ErrorDetail{Code: "INVALID_REQUEST"}})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Validation failed", Error: dto.ErrorDetail{Code: "VALIDATION_ERROR", Details: err.Error()}})
	}
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, err := h.flow.CreateReviews(h.requestCtx(c, "/api/v1/review"), &req, meta)
	if err != nil {
		return mapReviewErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Reviews created", Data: resp})
}

// ListByPosition returns one position's reviews, paginated
func (h *ReviewHandler) ListByPosition(c fiber.Ctx) error {
	positionID, ok := parseIDParam(c, "positionId")
	if !ok {
		return catalogBadID(c)
	}
	var q dto.PaginationQuery
	if err := c.Bind().Query(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid query", Error: dto.ErrorDetail{Code: "INVALID_REQUEST"}})
	}
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, err := h.flow.ListByPosition(h.requestCtx(c, "/api/v1/review/"+c.Params("positionId")), positionID, q.Page, q.Limit, meta)
	if err != nil {
		return mapReviewErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Reviews", Data: resp})
}

// Stats returns a position's review aggregate
func (h *ReviewHandler) Stats(c fiber.Ctx) error {
	positionID, ok := parseIDParam(c, "positionId")
	if !ok {
		return catalogBadID(c)
	}
	meta := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	resp, err := h.flow.Stats(h.requestCtx(c, "/api/v1/review/"+c.Params("positionId")+"/stats"), positionID, meta)
	if err != nil {
		return mapReviewErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Review stats", Data: resp})
}

func (h *ReviewHandler) requestCtx(c fiber.Ctx, endpoint string) context.Context {
	return context.WithValue(context.Background(), utils.EndpointKey, endpoint)
}

func mapReviewErr(c fiber.Ctx, err error) error {
	switch {
	case businessflow.IsNoReviewsProvided(err), businessflow.IsInvalidRating(err),
		businessflow.IsTelegramIDRequired(err), businessflow.IsPositionIDRequired(err),
		businessflow.IsInvalidPage(err), businessflow.IsInvalidPageSize(err):
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Validation failed", Error: dto.ErrorDetail{Code: "VALIDATION_ERROR", Details: err.Error()}})
	case businessflow.IsPositionNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{Success: false, Message: "Position not found", Error: dto.ErrorDetail{Code: "POSITION_NOT_FOUND"}})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{Success: false, Message: "Review operation failed", Error: dto.ErrorDetail{Code: "REVIEW_OPERATION_FAILED", Details: err.Error()}})
	}
}
