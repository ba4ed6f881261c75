// Package testing provides test utilities and database setup for integration tests
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/velmart/velmart-backend/models"
	"github.com/velmart/velmart-backend/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestClient creates a client with a random telegram id and the given balance
func (tf *TestFixtures) CreateTestClient(balance float64) (*models.Client, error) {
	telegramID := int64(rand.Intn(900000000) + 100000000)

	client := &models.Client{
		TelegramID: telegramID,
		Username:   fmt.Sprintf("user_%d", telegramID),
		FirstName:  "John",
		LastName:   "Doe",
		Balance:    balance,
	}

	if err := tf.DB.DB.Create(client).Error; err != nil {
		return nil, fmt.Errorf("failed to create test client: %w", err)
	}

	return client, nil
}

// CreateTestCatalog creates a city, district, category, product, and one
// position priced as given, returning the position with relations loaded.
func (tf *TestFixtures) CreateTestCatalog(price float64) (*models.Position, error) {
	suffix := rand.Intn(10000000)

	city := &models.City{Name: fmt.Sprintf("City %d", suffix)}
	if err := tf.DB.DB.Create(city).Error; err != nil {
		return nil, fmt.Errorf("failed to create test city: %w", err)
	}

	district := &models.District{Name: fmt.Sprintf("District %d", suffix), CityID: city.ID}
	if err := tf.DB.DB.Create(district).Error; err != nil {
		return nil, fmt.Errorf("failed to create test district: %w", err)
	}

	category := &models.Category{Name: fmt.Sprintf("Category %d", suffix)}
	if err := tf.DB.DB.Create(category).Error; err != nil {
		return nil, fmt.Errorf("failed to create test category: %w", err)
	}

	product := &models.Product{
		Name:        fmt.Sprintf("Product %d", suffix),
		Description: "Test product",
		CategoryID:  category.ID,
	}
	if err := tf.DB.DB.Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create test product: %w", err)
	}

	position := &models.Position{
		Name:       fmt.Sprintf("Position %d", suffix),
		Price:      price,
		Location:   "Test Street 1",
		Type:       models.PositionTypeInstant,
		ProductID:  product.ID,
		CityID:     &city.ID,
		DistrictID: &district.ID,
	}
	if err := tf.DB.DB.Create(position).Error; err != nil {
		return nil, fmt.Errorf("failed to create test position: %w", err)
	}

	if err := tf.DB.DB.Preload("Product").Preload("City").Preload("District").
		First(position, position.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload test position: %w", err)
	}

	return position, nil
}

// CreateTestPayment creates an active payment for the given client and position,
// including the frozen snapshot the flows expect.
func (tf *TestFixtures) CreateTestPayment(client *models.Client, position *models.Position, status models.PaymentStatus) (*models.Payment, error) {
	payment := &models.Payment{
		TelegramID:        client.TelegramID,
		ClientID:          &client.ID,
		PositionID:        position.ID,
		ProviderInvoiceID: int64(rand.Intn(90000000) + 10000000),
		Status:            status,
		PayURL:            "https://t.me/CryptoBot?start=test",
		Asset:             "USDT",
		Amount:            "10",
		Description:       fmt.Sprintf("Purchase: %s - %s", position.Product.Name, position.Name),
	}
	if err := payment.SetSnapshot(&models.PositionSnapshot{
		PositionID:   position.ID,
		PositionName: position.Name,
		Price:        position.Price,
		ProductName:  position.Product.Name,
		Location:     position.Location,
	}); err != nil {
		return nil, err
	}
	if status == models.PaymentStatusPaid {
		now := utils.UTCNow()
		payment.PaidAt = &now
	}

	if err := tf.DB.DB.Create(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to create test payment: %w", err)
	}

	return payment, nil
}

// CreateTestAdmin creates an active admin whose password is the given plaintext
func (tf *TestFixtures) CreateTestAdmin(username, password string) (*models.Admin, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Admin{
		UUID:         uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         "ADMIN",
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create test admin: %w", err)
	}

	return admin, nil
}

// CreateTestReviews inserts n reviews for a position with ratings cycling 1..5
func (tf *TestFixtures) CreateTestReviews(positionID uint, telegramID int64, n int) ([]*models.Review, error) {
	reviews := make([]*models.Review, 0, n)
	for i := 0; i < n; i++ {
		review := &models.Review{
			PositionID: positionID,
			TelegramID: telegramID,
			Rating:     i%5 + 1,
			Text:       fmt.Sprintf("Review %d", i+1),
		}
		if err := tf.DB.DB.Create(review).Error; err != nil {
			return nil, fmt.Errorf("failed to create test review %d: %w", i, err)
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

// CreateTestPurchase records a direct purchase for the client at the position's price
func (tf *TestFixtures) CreateTestPurchase(client *models.Client, position *models.Position) (*models.Purchase, error) {
	purchase := &models.Purchase{
		ClientID:     client.ID,
		Source:       models.PurchaseSourceDirect,
		PositionID:   position.ID,
		PositionName: position.Name,
		Price:        position.Price,
		ProductName:  position.Product.Name,
		Location:     position.Location,
		PurchaseDate: time.Now().UTC(),
	}

	if err := tf.DB.DB.Create(purchase).Error; err != nil {
		return nil, fmt.Errorf("failed to create test purchase: %w", err)
	}

	return purchase, nil
}
