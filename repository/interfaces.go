// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/velmart/velmart-backend/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Update(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id uint) error
}

// ClientRepository defines operations for clients
type ClientRepository interface {
	Repository[models.Client, models.ClientFilter]
	ByTelegramID(ctx context.Context, telegramID int64) (*models.Client, error)
	// AddToBalance atomically applies delta to the client's balance and
	// reports whether the update took effect. The update is rejected (false,
	// nil) when it would drive the balance negative.
	AddToBalance(ctx context.Context, clientID uint, delta float64) (bool, error)
}

// PaymentRepository defines operations for payments
type PaymentRepository interface {
	Repository[models.Payment, models.PaymentFilter]
	ByProviderInvoiceID(ctx context.Context, providerInvoiceID int64) (*models.Payment, error)
	ByTelegramID(ctx context.Context, telegramID int64, limit, offset int) ([]*models.Payment, error)
	ListByFilter(ctx context.Context, filter models.PaymentFilter, limit, offset int) ([]*models.Payment, error)
	// MarkPurchaseCreated flips the idempotence flag with a conditional
	// single-row update and reports whether this call won the transition.
	MarkPurchaseCreated(ctx context.Context, paymentID uint) (bool, error)
}

// PurchaseRepository defines operations for purchase history entries
type PurchaseRepository interface {
	Repository[models.Purchase, models.PurchaseFilter]
	ByClientID(ctx context.Context, clientID uint) ([]*models.Purchase, error)
	ByPaymentID(ctx context.Context, paymentID uint) (*models.Purchase, error)
}

// CityRepository defines operations for cities
type CityRepository interface {
	Repository[models.City, models.CityFilter]
	List(ctx context.Context) ([]*models.City, error)
	ByName(ctx context.Context, name string) (*models.City, error)
}

// DistrictRepository defines operations for districts
type DistrictRepository interface {
	Repository[models.District, models.DistrictFilter]
	List(ctx context.Context) ([]*models.District, error)
	ListByCity(ctx context.Context, cityID uint) ([]*models.District, error)
}

// CategoryRepository defines operations for categories
type CategoryRepository interface {
	Repository[models.Category, models.CategoryFilter]
	List(ctx context.Context) ([]*models.Category, error)
	ByName(ctx context.Context, name string) (*models.Category, error)
}

// ProductRepository defines operations for products
type ProductRepository interface {
	Repository[models.Product, models.ProductFilter]
	List(ctx context.Context, categoryID *uint) ([]*models.Product, error)
	CountByCategory(ctx context.Context, categoryID uint) (int64, error)
}

// PositionRepository defines operations for sellable positions
type PositionRepository interface {
	Repository[models.Position, models.PositionFilter]
	ByIDWithProduct(ctx context.Context, id uint) (*models.Position, error)
	Search(ctx context.Context, filter models.PositionFilter, limit, offset int) ([]*models.Position, int64, error)
}

// BotContentRepository defines operations for bot content blocks
type BotContentRepository interface {
	Repository[models.BotContent, models.BotContentFilter]
	ByKey(ctx context.Context, key string) (*models.BotContent, error)
	List(ctx context.Context) ([]*models.BotContent, error)
}

// ReviewRepository defines operations for reviews
type ReviewRepository interface {
	Repository[models.Review, models.ReviewFilter]
	ByPositionID(ctx context.Context, positionID uint, limit, offset int) ([]*models.Review, error)
	StatsByPositionID(ctx context.Context, positionID uint) (*models.ReviewStats, error)
}

// AdminRepository defines operations for admin accounts
type AdminRepository interface {
	Repository[models.Admin, models.AdminFilter]
	ByUsername(ctx context.Context, username string) (*models.Admin, error)
	UpdateLastLogin(ctx context.Context, adminID uint) error
	CountAll(ctx context.Context) (int64, error)
}
