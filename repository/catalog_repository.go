package repository

import (
	"context"
	"errors"

	"github.com/velmart/velmart-backend/models"
	"gorm.io/gorm"
)

// CategoryRepositoryImpl implements CategoryRepository
type CategoryRepositoryImpl struct {
	*BaseRepository[models.Category, models.CategoryFilter]
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &CategoryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Category, models.CategoryFilter](db),
	}
}

func (r *CategoryRepositoryImpl) List(ctx context.Context) ([]*models.Category, error) {
	db := r.getDB(ctx)
	var categories []*models.Category
	if err := db.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *CategoryRepositoryImpl) ByName(ctx context.Context, name string) (*models.Category, error) {
	db := r.getDB(ctx)
	var category models.Category
	if err := db.Where("name = ?", name).Last(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

// ProductRepositoryImpl implements ProductRepository
type ProductRepositoryImpl struct {
	*BaseRepository[models.Product, models.ProductFilter]
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &ProductRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Product, models.ProductFilter](db),
	}
}

func (r *ProductRepositoryImpl) List(ctx context.Context, categoryID *uint) ([]*models.Product, error) {
	db := r.getDB(ctx)
	q := db.Order("created_at DESC")
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	var products []*models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepositoryImpl) CountByCategory(ctx context.Context, categoryID uint) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := db.Model(&models.Product{}).Where("category_id = ?", categoryID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// PositionRepositoryImpl implements PositionRepository
type PositionRepositoryImpl struct {
	*BaseRepository[models.Position, models.PositionFilter]
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *gorm.DB) PositionRepository {
	return &PositionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Position, models.PositionFilter](db),
	}
}

func (r *PositionRepositoryImpl) ByIDWithProduct(ctx context.Context, id uint) (*models.Position, error) {
	db := r.getDB(ctx)
	var position models.Position
	if err := db.Preload("Product").First(&position, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &position, nil
}

// Search applies catalog filters and returns one page of positions plus the
// total match count.
func (r *PositionRepositoryImpl) Search(ctx context.Context, filter models.PositionFilter, limit, offset int) ([]*models.Position, int64, error) {
	db := r.getDB(ctx)
	q := db.Model(&models.Position{})
	if filter.CategoryID != nil {
		q = q.Joins("JOIN products ON products.id = positions.product_id").
			Where("products.category_id = ?", *filter.CategoryID)
	}
	if filter.ProductID != nil {
		q = q.Where("positions.product_id = ?", *filter.ProductID)
	}
	if filter.CityID != nil {
		q = q.Where("positions.city_id = ?", *filter.CityID)
	}
	if filter.DistrictID != nil {
		q = q.Where("positions.district_id = ?", *filter.DistrictID)
	}
	if filter.Type != nil {
		q = q.Where("positions.type = ?", *filter.Type)
	}
	if filter.MinPrice != nil {
		q = q.Where("positions.price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("positions.price <= ?", *filter.MaxPrice)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Preload("Product").Preload("City").Preload("District").
		Order("positions.created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var positions []*models.Position
	if err := q.Find(&positions).Error; err != nil {
		return nil, 0, err
	}
	return positions, total, nil
}
