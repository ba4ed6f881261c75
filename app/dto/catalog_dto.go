package dto

// CreateCityRequest is the body of POST /city
type CreateCityRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// CityDTO is the public projection of a city
type CityDTO struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// CreateDistrictRequest is the body of POST /district
type CreateDistrictRequest struct {
	Name   string `json:"name" validate:"required,max=255"`
	CityID uint   `json:"cityId" validate:"required"`
}

// DistrictDTO is the public projection of a district
type DistrictDTO struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	CityID uint   `json:"city_id"`
}

// CreateCategoryRequest is the body of POST /category
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// CategoryDTO is the public projection of a category
type CategoryDTO struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// CreateProductRequest is the multipart form of POST /product
type CreateProductRequest struct {
	Name        string `form:"name" validate:"required,max=255"`
	Description string `form:"description" validate:"omitempty"`
	CategoryID  uint   `form:"categoryId" validate:"required"`
}

// ProductDTO is the public projection of a product
type ProductDTO struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	CategoryID  uint   `json:"category_id"`
}

// CreatePositionRequest is the body of POST /position
type CreatePositionRequest struct {
	Name       string  `json:"name" validate:"required,max=255"`
	Price      float64 `json:"price" validate:"required,gt=0"`
	Location   string  `json:"location" validate:"omitempty,max=255"`
	Type       string  `json:"type" validate:"omitempty,oneof=instant order"`
	ProductID  uint    `json:"productId" validate:"required"`
	CityID     *uint   `json:"cityId" validate:"omitempty"`
	DistrictID *uint   `json:"districtId" validate:"omitempty"`
}

// PositionDTO is the public projection of a position
type PositionDTO struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Location    string  `json:"location"`
	Type        string  `json:"type"`
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	CityID      *uint   `json:"city_id,omitempty"`
	DistrictID  *uint   `json:"district_id,omitempty"`
}

// CatalogSearchQuery carries GET /catalog/search filters
type CatalogSearchQuery struct {
	CategoryID *uint    `query:"categoryId" validate:"omitempty"`
	ProductID  *uint    `query:"productId" validate:"omitempty"`
	CityID     *uint    `query:"cityId" validate:"omitempty"`
	DistrictID *uint    `query:"districtId" validate:"omitempty"`
	Type       string   `query:"type" validate:"omitempty,oneof=instant order"`
	MinPrice   *float64 `query:"minPrice" validate:"omitempty,gte=0"`
	MaxPrice   *float64 `query:"maxPrice" validate:"omitempty,gte=0"`
	Page       int      `query:"page" validate:"omitempty,min=1"`
	Limit      int      `query:"limit" validate:"omitempty,min=1,max=100"`
}

// CatalogSearchResponse mirrors the classic count/rows page shape
type CatalogSearchResponse struct {
	Count int64         `json:"count"`
	Rows  []PositionDTO `json:"rows"`
}
