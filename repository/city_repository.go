package repository

import (
	"context"
	"errors"

	"github.com/velmart/velmart-backend/models"
	"gorm.io/gorm"
)

// CityRepositoryImpl implements CityRepository
type CityRepositoryImpl struct {
	*BaseRepository[models.City, models.CityFilter]
}

// NewCityRepository creates a new city repository
func NewCityRepository(db *gorm.DB) CityRepository {
	return &CityRepositoryImpl{
		BaseRepository: NewBaseRepository[models.City, models.CityFilter](db),
	}
}

func (r *CityRepositoryImpl) List(ctx context.Context) ([]*models.City, error) {
	db := r.getDB(ctx)
	var cities []*models.City
	if err := db.Order("name ASC").Find(&cities).Error; err != nil {
		return nil, err
	}
	return cities, nil
}

func (r *CityRepositoryImpl) ByName(ctx context.Context, name string) (*models.City, error) {
	db := r.getDB(ctx)
	var city models.City
	if err := db.Where("name = ?", name).Last(&city).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &city, nil
}

// DistrictRepositoryImpl implements DistrictRepository
type DistrictRepositoryImpl struct {
	*BaseRepository[models.District, models.DistrictFilter]
}

// NewDistrictRepository creates a new district repository
func NewDistrictRepository(db *gorm.DB) DistrictRepository {
	return &DistrictRepositoryImpl{
		BaseRepository: NewBaseRepository[models.District, models.DistrictFilter](db),
	}
}

func (r *DistrictRepositoryImpl) List(ctx context.Context) ([]*models.District, error) {
	db := r.getDB(ctx)
	var districts []*models.District
	if err := db.Order("name ASC").Find(&districts).Error; err != nil {
		return nil, err
	}
	return districts, nil
}

func (r *DistrictRepositoryImpl) ListByCity(ctx context.Context, cityID uint) ([]*models.District, error) {
	db := r.getDB(ctx)
	var districts []*models.District
	if err := db.Where("city_id = ?", cityID).Order("name ASC").Find(&districts).Error; err != nil {
		return nil, err
	}
	return districts, nil
}
