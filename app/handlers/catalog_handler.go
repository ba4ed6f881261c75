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

type CatalogHandlerInterface interface {
	CreateCity(c fiber.Ctx) error
	ListCities(c fiber.Ctx) error
	DeleteCity(c fiber.Ctx) error
	CreateDistrict(c fiber.Ctx) error
	ListDistricts(c fiber.Ctx) error
	DeleteDistrict(c fiber.Ctx) error
	CreateCategory(c fiber.Ctx) error
	ListCategories(c fiber.Ctx) error
	DeleteCategory(c fiber.Ctx) error
	CreateProduct(c fiber.Ctx) error
	ListProducts(c fiber.Ctx) error
	DeleteProduct(c fiber.Ctx) error
	CreatePosition(c fiber.Ctx) error
	DeletePosition(c fiber.Ctx) error
	Search(c fiber.Ctx) error
}

type CatalogHandler struct {
	flow      businessflow.CatalogFlow
	media     businessflow.MediaFlow
	validator *validator.Validate
}

func NewCatalogHandler(flow businessflow.CatalogFlow, media businessflow.MediaFlow) *CatalogHandler {
	return &CatalogHandler{flow: flow, media: media, validator: validator.New()}
}

func (h *CatalogHandler) CreateCity(c fiber.Ctx) error {
	var req dto.CreateCityRequest
	if err := c.Bind().JSON(&req); err != nil {
		return catalogBadBody(c)
	}
	if err := h.validator.Struct(&req); err != nil {
		return catalogValidationFailed(c, err)
	}
	resp, err := h.flow.CreateCity(h.requestCtx(c, "/api/v1/city"), &req, h.meta(c))
	if err != nil {
		return mapCatalogErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "City created", Data: resp})
}

func (h *CatalogHandler) ListCities(c fiber.Ctx) error {
	resp, err := h.flow.ListCities(h.requestCtx(c, "/api/v1/city"), h.meta(c))
	if err != nil {
		return mapCatalogErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Cities", Data: resp})
}

func (h *CatalogHandler) DeleteCity(c fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return catalogBadID(c)
	}
	if err := h.flow.DeleteCity(h.requestCtx(c, "/api/v1/city/"+c.Params("id")), id, h.meta(c)); err != nil {
		return mapCatalogErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "City deleted"})
}

func (h *CatalogHandler) CreateDistrict(c fiber.Ctx) error {
	var req dto.CreateDistrictRequest
	if err := c.Bind().JSON(&req); err != nil {
		return catalogBadBody(c)
	}
	if err := h.validator.Struct(&req); err != nil {
		return catalogValidationFailed(c, err)
	}
	resp, err := h.flow.CreateDistrict(h.requestCtx(c, "/api/v1/district"), &req, h.meta(c))
	if err != nil {
		return mapCatalogErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "District created", Data: resp})
}

func (h *CatalogHandler) ListDistricts(c fiber.Ctx) error {
	var cityID *uint
	if raw := c.Query("cityId"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return catalogBadID(c)
		}
		id := uint(v)
		cityID = &id
	}
	resp, err := h.flow.ListDistricts(h.requestCtx(c, "/api/v1/district"), cityID, h.meta(c))
	if err != nil {
		return mapCatalogErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Districts", Data: resp})
}

func (h *CatalogHandler) DeleteDistrict(c fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return catalogBadID(c)
	}
	if err := h.flow.DeleteDistrict(h.requestCtx(c, "/api/v1/district/"+c.Params("id")), id, h.meta(c)); err != nil {
		return mapCatalogErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "District deleted"})
}

func (h *CatalogHandler) CreateCategory(c fiber.Ctx) error {
	var req dto.CreateCategoryRequest
	if err := c.Bind().JSON(&req); err != nil {
		return catalogBadBody(c)
	}
	if err := h.validator.Struct(&req); err != nil {
		return catalogValidationFailed(c, err)
	}
	resp, err := h.flow.CreateCategory(h.requestCtx(c, "/api/v1/category"), &req, h.meta(c))
	if err != nil {
		return mapCatalogErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Category created", Data: resp})
}

func (h *CatalogHandler) ListCategories(c fiber.Ctx) error {
	resp, err := h.flow.ListCategories(h.requestCtx(c, "/api/v1/category"), h.meta(c))
	if err != nil {
		return mapCatalogErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Categories", Data: resp})
}

func (h *CatalogHandler) DeleteCategory(c fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return catalogBadID(c)
	}
	if err := h.flow.DeleteCategory(h.requestCtx(c, "/api/v1/category/"+c.Params("id")), id, h.meta(c)); err != nil {
		return mapCatalogErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Category deleted"})
}

// CreateProduct accepts a multipart form with an optional image file.
func (h *CatalogHandler) CreateProduct(c fiber.Ctx) error {
	var req dto.CreateProductRequest
	if err := c.Bind().Form(&req); err != nil {
		return catalogBadBody(c)
	}
	if err := h.validator.Struct(&req); err != nil {
		return catalogValidationFailed(c, err)
	}

	imagePath := ""
	if fileHeader, err := c.FormFile("image"); err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid image file", Error: dto.ErrorDetail{Code: "INVALID_FILE"}})
		}
		defer file.Close()
		imagePath, err = h.media.SaveImage(h.requestCtx(c, "/api/v1/product"), file, fileHeader.Filename, h.meta(c))
		if err != nil {
			return mapCatalogErr(c, err)
		}
	}

	resp, err := h.flow.CreateProduct(h.requestCtx(c, "/api/v1/product"), &req, imagePath, h.meta(c))
	if err != nil {
		return mapCatalogErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Product created", Data: resp})
}

func (h *CatalogHandler) ListProducts(c fiber.Ctx) error {
	var categoryID *uint
	if raw := c.Query("categoryId"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return catalogBadID(c)
		}
		id := uint(v)
		categoryID = &id
	}
	resp, err := h.flow.ListProducts(h.requestCtx(c, "/api/v1/product"), categoryID, h.meta(c))
	if err != nil {
		return mapCatalogErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Products", Data: resp})
}

func (h *CatalogHandler) DeleteProduct(c fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return catalogBadID(c)
	}
	if err := h.flow.DeleteProduct(h.requestCtx(c, "/api/v1/product/"+c.Params("id")), id, h.meta(c)); err != nil {
		return mapCatalogErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Product deleted"})
}

func (h *CatalogHandler) CreatePosition(c fiber.Ctx) error {
	var req dto.CreatePositionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return catalogBadBody(c)
	}
	if err := h.validator.Struct(&req); err != nil {
		return catalogValidationFailed(c, err)
	}
	resp, err := h.flow.CreatePosition(h.requestCtx(c, "/api/v1/position"), &req, h.meta(c))
	if err != nil {
		return mapCatalogErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Position created", Data: resp})
}

func (h *CatalogHandler) DeletePosition(c fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return catalogBadID(c)
	}
	if err := h.flow.DeletePosition(h.requestCtx(c, "/api/v1/position/"+c.Params("id")), id, h.meta(c)); err != nil {
		return mapCatalogErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Position deleted"})
}

// Search filters positions with pagination for the bot and the admin panel.
func (h *CatalogHandler) Search(c fiber.Ctx) error {
	var q dto.CatalogSearchQuery
	if err := c.Bind().Query(&q); err != nil {
		return catalogBadBody(c)
	}
	if err := h.validator.Struct(&q); err != nil {
		return catalogValidationFailed(c, err)
	}
	resp, err := h.flow.Search(h.requestCtx(c, "/api/v1/catalog/search"), &q, h.meta(c))
	if err != nil {
		return mapCatalogErr(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: "Catalog search", Data: resp})
}

func (h *CatalogHandler) meta(c fiber.Ctx) *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
}

func (h *CatalogHandler) requestCtx(c fiber.Ctx, endpoint string) context.Context {
	return context.WithValue(context.Background(), utils.EndpointKey, endpoint)
}

func parseIDParam(c fiber.Ctx, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

func catalogBadBody(c fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid request body", Error: dto.ErrorDetail{Code: "INVALID_REQUEST"}})
}

func catalogBadID(c fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid id", Error: dto.ErrorDetail{Code: "INVALID_ID"}})
}

func catalogValidationFailed(c fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Validation failed", Error: dto.ErrorDetail{Code: "VALIDATION_ERROR", Details: validationDetails(err)}})
}

func mapCatalogErr(c fiber.Ctx, err error) error {
	switch {
	case businessflow.IsNameRequired(err), businessflow.IsInvalidPrice(err):
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Validation failed", Error: dto.ErrorDetail{Code: "VALIDATION_ERROR", Details: err.Error()}})
	case businessflow.IsCityNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{Success: false, Message: "City not found", Error: dto.ErrorDetail{Code: "CITY_NOT_FOUND"}})
	case businessflow.IsDistrictNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{Success: false, Message: "District not found", Error: dto.ErrorDetail{Code: "DISTRICT_NOT_FOUND"}})
	case businessflow.IsCategoryNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{Success: false, Message: "Category not found", Error: dto.ErrorDetail{Code: "CATEGORY_NOT_FOUND"}})
	case businessflow.IsCategoryNotEmpty(err):
		return c.Status(fiber.StatusConflict).JSON(dto.APIResponse{Success: false, Message: "Category still has products", Error: dto.ErrorDetail{Code: "CATEGORY_NOT_EMPTY"}})
	case businessflow.IsProductNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{Success: false, Message: "Product not found", Error: dto.ErrorDetail{Code: "PRODUCT_NOT_FOUND"}})
	case businessflow.IsPositionNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{Success: false, Message: "Position not found", Error: dto.ErrorDetail{Code: "POSITION_NOT_FOUND"}})
	case businessflow.IsUnsupportedImage(err):
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Unsupported image type", Error: dto.ErrorDetail{Code: "INVALID_FILE_TYPE"}})
	case businessflow.IsImageTooLarge(err):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(dto.APIResponse{Success: false, Message: "Image exceeds the size limit", Error: dto.ErrorDetail{Code: "FILE_TOO_LARGE"}})
	case businessflow.IsInvalidPage(err), businessflow.IsInvalidPageSize(err):
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{Success: false, Message: "Invalid pagination", Error: dto.ErrorDetail{Code: "INVALID_PAGINATION"}})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{Success: false, Message: "Catalog operation failed", Error: dto.ErrorDetail{Code: "CATALOG_OPERATION_FAILED", Details: err.Error()}})
	}
}
