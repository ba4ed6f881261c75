// Package businessflow contains the core business logic and use cases for catalog workflows
package businessflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/velmart/velmart-backend/app/dto"
	"github.com/velmart/velmart-backend/config"
	"github.com/velmart/velmart-backend/models"
	"github.com/velmart/velmart-backend/repository"
	"github.com/velmart/velmart-backend/utils"
)

// CatalogFlow handles the city/district/category/product/position catalog.
type CatalogFlow interface {
	CreateCity(ctx context.Context, req *dto.CreateCityRequest, metadata *ClientMetadata) (*dto.CityDTO, error)
	ListCities(ctx context.Context, metadata *ClientMetadata) ([]dto.CityDTO, error)
	DeleteCity(ctx context.Context, id uint, metadata *ClientMetadata) error

	CreateDistrict(ctx context.Context, req *dto.CreateDistrictRequest, metadata *ClientMetadata) (*dto.DistrictDTO, error)
	ListDistricts(ctx context.Context, cityID *uint, metadata *ClientMetadata) ([]dto.DistrictDTO, error)
	DeleteDistrict(ctx context.Context, id uint, metadata *ClientMetadata) error

	CreateCategory(ctx context.Context, req *dto.CreateCategoryRequest, metadata *ClientMetadata) (*dto.CategoryDTO, error)
	ListCategories(ctx context.Context, metadata *ClientMetadata) ([]dto.CategoryDTO, error)
	DeleteCategory(ctx context.Context, id uint, metadata *ClientMetadata) error

	CreateProduct(ctx context.Context, req *dto.CreateProductRequest, imagePath string, metadata *ClientMetadata) (*dto.ProductDTO, error)
	ListProducts(ctx context.Context, categoryID *uint, metadata *ClientMetadata) ([]dto.ProductDTO, error)
	DeleteProduct(ctx context.Context, id uint, metadata *ClientMetadata) error

	CreatePosition(ctx context.Context, req *dto.CreatePositionRequest, metadata *ClientMetadata) (*dto.PositionDTO, error)
	DeletePosition(ctx context.Context, id uint, metadata *ClientMetadata) error
	Search(ctx context.Context, q *dto.CatalogSearchQuery, metadata *ClientMetadata) (*dto.CatalogSearchResponse, error)
}

// CatalogFlowImpl implements CatalogFlow
type CatalogFlowImpl struct {
	cityRepo     repository.CityRepository
	districtRepo repository.DistrictRepository
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	positionRepo repository.PositionRepository
	rc           *redis.Client
	cacheConfig  config.CacheConfig
}

func NewCatalogFlow(
	cityRepo repository.CityRepository,
	districtRepo repository.DistrictRepository,
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	positionRepo repository.PositionRepository,
	rc *redis.Client,
	cacheConfig config.CacheConfig,
) CatalogFlow {
	return &CatalogFlowImpl{
		cityRepo:     cityRepo,
		districtRepo: districtRepo,
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		positionRepo: positionRepo,
		rc:           rc,
		cacheConfig:  cacheConfig,
	}
}

const catalogGenerationKey = "catalog:generation"

func (f *CatalogFlowImpl) CreateCity(ctx context.Context, req *dto.CreateCityRequest, metadata *ClientMetadata) (*dto.CityDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	existing, err := f.cityRepo.ByName(ctx, name)
	if err != nil {
		return nil, NewBusinessError("CITY_LOOKUP_FAILED", "Failed to look up city", err)
	}
	if existing != nil {
		d := dto.CityDTO{ID: existing.ID, Name: existing.Name}
		return &d, nil
	}
	city := &models.City{Name: name}
	if err := f.cityRepo.Save(ctx, city); err != nil {
		return nil, NewBusinessError("CITY_CREATE_FAILED", "Failed to create city", err)
	}
	f.bumpGeneration(ctx)
	return &dto.CityDTO{ID: city.ID, Name: city.Name}, nil
}

func (f *CatalogFlowImpl) ListCities(ctx context.Context, metadata *ClientMetadata) ([]dto.CityDTO, error) {
	cities, err := f.cityRepo.List(ctx)
	if err != nil {
		return nil, NewBusinessError("CITY_LIST_FAILED", "Failed to list cities", err)
	}
	out := make([]dto.CityDTO, 0, len(cities))
	for _, c := range cities {
		out = append(out, dto.CityDTO{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

func (f *CatalogFlowImpl) DeleteCity(ctx context.Context, id uint, metadata *ClientMetadata) error {
	city, err := f.cityRepo.ByID(ctx, id)
	if err != nil {
		return NewBusinessError("CITY_LOOKUP_FAILED", "Failed to look up city", err)
	}
	if city == nil {
		return ErrCityNotFound
	}
	if err := f.cityRepo.Delete(ctx, id); err != nil {
		return NewBusinessError("CITY_DELETE_FAILED", "Failed to delete city", err)
	}
	f.bumpGeneration(ctx)
	return nil
}

func (f *CatalogFlowImpl) CreateDistrict(ctx context.Context, req *dto.CreateDistrictRequest, metadata *ClientMetadata) (*dto.DistrictDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	city, err := f.cityRepo.ByID(ctx, req.CityID)
	if err != nil {
		return nil, NewBusinessError("CITY_LOOKUP_FAILED", "Failed to look up city", err)
	}
	if city == nil {
		return nil, ErrCityNotFound
	}
	district := &models.District{Name: name, CityID: city.ID}
	if err := f.districtRepo.Save(ctx, district); err != nil {
		return nil, NewBusinessError("DISTRICT_CREATE_FAILED", "Failed to create district", err)
	}
	f.bumpGeneration(ctx)
	return &dto.DistrictDTO{ID: district.ID, Name: district.Name, CityID: district.CityID}, nil
}

func (f *CatalogFlowImpl) ListDistricts(ctx context.Context, cityID *uint, metadata *ClientMetadata) ([]dto.DistrictDTO, error) {
	var (
		districts []*models.District
		err       error
	)
	if cityID != nil {
		districts, err = f.districtRepo.ListByCity(ctx, *cityID)
	} else {
		districts, err = f.districtRepo.List(ctx)
	}
	if err != nil {
		return nil, NewBusinessError("DISTRICT_LIST_FAILED", "Failed to list districts", err)
	}
	out := make([]dto.DistrictDTO, 0, len(districts))
	for _, d := range districts {
		out = append(out, dto.DistrictDTO{ID: d.ID, Name: d.Name, CityID: d.CityID})
	}
	return out, nil
}

func (f *CatalogFlowImpl) DeleteDistrict(ctx context.Context, id uint, metadata *ClientMetadata) error {
	district, err := f.districtRepo.ByID(ctx, id)
	if err != nil {
		return NewBusinessError("DISTRICT_LOOKUP_FAILED", "Failed to look up district", err)
	}
	if district == nil {
		return ErrDistrictNotFound
	}
	if err := f.districtRepo.Delete(ctx, id); err != nil {
		return NewBusinessError("DISTRICT_DELETE_FAILED", "Failed to delete district", err)
	}
	f.bumpGeneration(ctx)
	return nil
}

func (f *CatalogFlowImpl) CreateCategory(ctx context.Context, req *dto.CreateCategoryRequest, metadata *ClientMetadata) (*dto.CategoryDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	existing, err := f.categoryRepo.ByName(ctx, name)
	if err != nil {
		return nil, NewBusinessError("CATEGORY_LOOKUP_FAILED", "Failed to look up category", err)
	}
	if existing != nil {
		d := dto.CategoryDTO{ID: existing.ID, Name: existing.Name}
		return &d, nil
	}
	category := &models.Category{Name: name}
	if err := f.categoryRepo.Save(ctx, category); err != nil {
		return nil, NewBusinessError("CATEGORY_CREATE_FAILED", "Failed to create category", err)
	}
	f.bumpGeneration(ctx)
	return &dto.CategoryDTO{ID: category.ID, Name: category.Name}, nil
}

func (f *CatalogFlowImpl) ListCategories(ctx context.Context, metadata *ClientMetadata) ([]dto.CategoryDTO, error) {
	categories, err := f.categoryRepo.List(ctx)
	if err != nil {
		return nil, NewBusinessError("CATEGORY_LIST_FAILED", "Failed to list categories", err)
	}
	out := make([]dto.CategoryDTO, 0, len(categories))
	for _, c := range categories {
		out = append(out, dto.CategoryDTO{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

// DeleteCategory removes an empty category. Categories that still own
// products are rejected so products never dangle.
func (f *CatalogFlowImpl) DeleteCategory(ctx context.Context, id uint, metadata *ClientMetadata) error {
	category, err := f.categoryRepo.ByID(ctx, id)
	if err != nil {
		return NewBusinessError("CATEGORY_LOOKUP_FAILED", "Failed to look up category", err)
	}
	if category == nil {
		return ErrCategoryNotFound
	}
	count, err := f.productRepo.CountByCategory(ctx, id)
	if err != nil {
		return NewBusinessError("CATEGORY_COUNT_FAILED", "Failed to count category products", err)
	}
	if count > 0 {
		return ErrCategoryNotEmpty
	}
	if err := f.categoryRepo.Delete(ctx, id); err != nil {
		return NewBusinessError("CATEGORY_DELETE_FAILED", "Failed to delete category", err)
	}
	f.bumpGeneration(ctx)
	return nil
}

func (f *CatalogFlowImpl) CreateProduct(ctx context.Context, req *dto.CreateProductRequest, imagePath string, metadata *ClientMetadata) (*dto.ProductDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	category, err := f.categoryRepo.ByID(ctx, req.CategoryID)
	if err != nil {
		return nil, NewBusinessError("CATEGORY_LOOKUP_FAILED", "Failed to look up category", err)
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	product := &models.Product{
		Name:        name,
		Description: req.Description,
		Image:       imagePath,
		CategoryID:  category.ID,
	}
	if err := f.productRepo.Save(ctx, product); err != nil {
		return nil, NewBusinessError("PRODUCT_CREATE_FAILED", "Failed to create product", err)
	}
	f.bumpGeneration(ctx)
	d := toProductDTO(product)
	return &d, nil
}

func (f *CatalogFlowImpl) ListProducts(ctx context.Context, categoryID *uint, metadata *ClientMetadata) ([]dto.ProductDTO, error) {
	products, err := f.productRepo.List(ctx, categoryID)
	if err != nil {
		return nil, NewBusinessError("PRODUCT_LIST_FAILED", "Failed to list products", err)
	}
	out := make([]dto.ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	return out, nil
}

func (f *CatalogFlowImpl) DeleteProduct(ctx context.Context, id uint, metadata *ClientMetadata) error {
	product, err := f.productRepo.ByID(ctx, id)
	if err != nil {
		return NewBusinessError("PRODUCT_LOOKUP_FAILED", "Failed to look up product", err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	if err := f.productRepo.Delete(ctx, id); err != nil {
		return NewBusinessError("PRODUCT_DELETE_FAILED", "Failed to delete product", err)
	}
	f.bumpGeneration(ctx)
	return nil
}

func (f *CatalogFlowImpl) CreatePosition(ctx context.Context, req *dto.CreatePositionRequest, metadata *ClientMetadata) (*dto.PositionDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if req.Price <= 0 || math.IsNaN(req.Price) || math.IsInf(req.Price, 0) {
		return nil, ErrInvalidPrice
	}
	product, err := f.productRepo.ByID(ctx, req.ProductID)
	if err != nil {
		return nil, NewBusinessError("PRODUCT_LOOKUP_FAILED", "Failed to look up product", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if req.CityID != nil {
		city, err := f.cityRepo.ByID(ctx, *req.CityID)
		if err != nil {
			return nil, NewBusinessError("CITY_LOOKUP_FAILED", "Failed to look up city", err)
		}
		if city == nil {
			return nil, ErrCityNotFound
		}
	}
	if req.DistrictID != nil {
		district, err := f.districtRepo.ByID(ctx, *req.DistrictID)
		if err != nil {
			return nil, NewBusinessError("DISTRICT_LOOKUP_FAILED", "Failed to look up district", err)
		}
		if district == nil {
			return nil, ErrDistrictNotFound
		}
	}

	posType := models.PositionType(req.Type)
	if posType == "" {
		posType = models.PositionTypeInstant
	}
	position := &models.Position{
		Name:       name,
		Price:      req.Price,
		Location:   req.Location,
		Type:       posType,
		ProductID:  product.ID,
		CityID:     req.CityID,
		DistrictID: req.DistrictID,
	}
	if err := f.positionRepo.Save(ctx, position); err != nil {
		return nil, NewBusinessError("POSITION_CREATE_FAILED", "Failed to create position", err)
	}
	f.bumpGeneration(ctx)
	position.Product = *product
	d := toPositionDTO(position)
	return &d, nil
}

func (f *CatalogFlowImpl) DeletePosition(ctx context.Context, id uint, metadata *ClientMetadata) error {
	position, err := f.positionRepo.ByID(ctx, id)
	if err != nil {
		return NewBusinessError("POSITION_LOOKUP_FAILED", "Failed to look up position", err)
	}
	if position == nil {
		return ErrPositionNotFound
	}
	if err := f.positionRepo.Delete(ctx, id); err != nil {
		return NewBusinessError("POSITION_DELETE_FAILED", "Failed to delete position", err)
	}
	f.bumpGeneration(ctx)
	return nil
}

// Search filters positions with pagination. Result pages are cached in
// Redis keyed by a filter digest plus a generation counter that every
// catalog write bumps, so stale pages die without key scans.
func (f *CatalogFlowImpl) Search(ctx context.Context, q *dto.CatalogSearchQuery, metadata *ClientMetadata) (*dto.CatalogSearchResponse, error) {
	page := q.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return nil, ErrInvalidPage
	}
	limit := q.Limit
	if limit == 0 {
		limit = utils.DefaultCatalogPageSize
	}
	if limit < 1 || limit > 100 {
		return nil, ErrInvalidPageSize
	}
	offset := (page - 1) * limit

	filter := models.PositionFilter{
		ProductID:  q.ProductID,
		CategoryID: q.CategoryID,
		CityID:     q.CityID,
		DistrictID: q.DistrictID,
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
	}
	if q.Type != "" {
		t := models.PositionType(q.Type)
		filter.Type = &t
	}

	cacheKey := f.searchCacheKey(ctx, filter, limit, offset)
	if cacheKey != "" {
		if bs, err := f.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var out dto.CatalogSearchResponse
			if err := json.Unmarshal(bs, &out); err == nil {
				return &out, nil
			}
		}
	}

	positions, total, err := f.positionRepo.Search(ctx, filter, limit, offset)
	if err != nil {
		return nil, NewBusinessError("CATALOG_SEARCH_FAILED", "Failed to search catalog", err)
	}
	out := &dto.CatalogSearchResponse{
		Count: total,
		Rows:  make([]dto.PositionDTO, 0, len(positions)),
	}
	for _, p := range positions {
		out.Rows = append(out.Rows, toPositionDTO(p))
	}

	if cacheKey != "" {
		if bs, err := json.Marshal(out); err == nil {
			ttl := f.cacheConfig.CatalogTTL
			if ttl <= 0 {
				ttl = f.cacheConfig.DefaultTTL
			}
			_ = f.rc.Set(ctx, cacheKey, bs, ttl).Err()
		}
	}
	return out, nil
}

// bumpGeneration invalidates all cached search pages.
func (f *CatalogFlowImpl) bumpGeneration(ctx context.Context) {
	if f.rc == nil || !f.cacheConfig.Enabled {
		return
	}
	_ = f.rc.Incr(ctx, f.cacheConfig.RedisPrefix+catalogGenerationKey).Err()
}

func (f *CatalogFlowImpl) searchCacheKey(ctx context.Context, filter models.PositionFilter, limit, offset int) string {
	if f.rc == nil || !f.cacheConfig.Enabled {
		return ""
	}
	gen, err := f.rc.Get(ctx, f.cacheConfig.RedisPrefix+catalogGenerationKey).Result()
	if err != nil {
		gen = "0"
	}
	raw, _ := json.Marshal(struct {
		Filter models.PositionFilter `json:"filter"`
		Limit  int                   `json:"limit"`
		Offset int                   `json:"offset"`
	}{filter, limit, offset})
	sum := sha256.Sum256(raw)
	return f.cacheConfig.RedisPrefix + "catalog:search:" + gen + ":" + hex.EncodeToString(sum[:8])
}

func toProductDTO(p *models.Product) dto.ProductDTO {
	return dto.ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		CategoryID:  p.CategoryID,
	}
}

func toPositionDTO(p *models.Position) dto.PositionDTO {
	return dto.PositionDTO{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Location:    p.Location,
		Type:        string(p.Type),
		ProductID:   p.ProductID,
		ProductName: p.Product.Name,
		CityID:      p.CityID,
		DistrictID:  p.DistrictID,
	}
}
