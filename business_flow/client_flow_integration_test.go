package businessflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmart/velmart-backend/app/dto"
	"github.com/velmart/velmart-backend/models"
	"github.com/velmart/velmart-backend/repository"
)

func TestDirectPurchaseDeductsBalanceOnce(t *testing.T) {
	tdb, fixtures := setupIntegrationDB(t)
	ctx := context.Background()

	client, err := fixtures.CreateTestClient(100)
	require.NoError(t, err)
	position, err := fixtures.CreateTestCatalog(30)
	require.NoError(t, err)

	flow := NewClientFlow(
		repository.NewClientRepository(tdb.DB),
		repository.NewPurchaseRepository(tdb.DB),
		repository.NewPositionRepository(tdb.DB),
		tdb.DB,
	)

	resp, err := flow.DirectPurchase(ctx, &dto.DirectPurchaseRequest{
		TelegramID: client.TelegramID,
		PositionID: position.ID,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, string(models.PurchaseSourceDirect), resp.Purchase.Source)
	assert.Equal(t, position.Name, resp.Purchase.PositionName)
	assert.Equal(t, position.Product.Name, resp.Purchase.ProductName)
	assert.InDelta(t, 70, resp.Balance, 0.0001)

	var fresh models.Client
	require.NoError(t, tdb.DB.First(&fresh, client.ID).Error)
	assert.InDelta(t, 70, fresh.Balance, 0.0001)

	var count int64
	require.NoError(t, tdb.DB.Model(&models.Purchase{}).Where("client_id = ?", client.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDirectPurchaseInsufficientBalance(t *testing.T) {
	tdb, fixtures := setupIntegrationDB(t)
	ctx := context.Background()

	client, err := fixtures.CreateTestClient(10)
	require.NoError(t, err)
	position, err := fixtures.CreateTestCatalog(30)
	require.NoError(t, err)

	flow := NewClientFlow(
		repository.NewClientRepository(tdb.DB),
		repository.NewPurchaseRepository(tdb.DB),
		repository.NewPositionRepository(tdb.DB),
		tdb.DB,
	)

	_, err = flow.DirectPurchase(ctx, &dto.DirectPurchaseRequest{
		TelegramID: client.TelegramID,
		PositionID: position.ID,
	}, nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// The rejected purchase must leave no trace: balance intact, no
	// history row.
	var fresh models.Client
	require.NoError(t, tdb.DB.First(&fresh, client.ID).Error)
	assert.InDelta(t, 10, fresh.Balance, 0.0001)

	var count int64
	require.NoError(t, tdb.DB.Model(&models.Purchase{}).Where("client_id = ?", client.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestAdjustBalanceNeverGoesNegative(t *testing.T) {
	tdb, fixtures := setupIntegrationDB(t)
	ctx := context.Background()

	client, err := fixtures.CreateTestClient(25)
	require.NoError(t, err)

	flow := NewClientFlow(
		repository.NewClientRepository(tdb.DB),
		repository.NewPurchaseRepository(tdb.DB),
		repository.NewPositionRepository(tdb.DB),
		tdb.DB,
	)

	balance, err := flow.AdjustBalance(ctx, client.TelegramID, &dto.AdjustBalanceRequest{Amount: -25}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0, balance.Balance, 0.0001)

	_, err = flow.AdjustBalance(ctx, client.TelegramID, &dto.AdjustBalanceRequest{Amount: -0.01}, nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	balance, err = flow.GetBalance(ctx, client.TelegramID, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0, balance.Balance, 0.0001)
}

func TestGetBalanceRegistersUnknownClient(t *testing.T) {
	tdb, _ := setupIntegrationDB(t)
	ctx := context.Background()

	flow := NewClientFlow(
		repository.NewClientRepository(tdb.DB),
		repository.NewPurchaseRepository(tdb.DB),
		repository.NewPositionRepository(tdb.DB),
		tdb.DB,
	)

	balance, err := flow.GetBalance(ctx, 987654321, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(987654321), balance.TelegramID)
	assert.Zero(t, balance.Balance)

	var client models.Client
	require.NoError(t, tdb.DB.Where("telegram_id = ?", int64(987654321)).First(&client).Error)
}

func TestGetOrCreateClientRefreshesProfile(t *testing.T) {
	tdb, _ := setupIntegrationDB(t)
	ctx := context.Background()

	flow := NewClientFlow(
		repository.NewClientRepository(tdb.DB),
		repository.NewPurchaseRepository(tdb.DB),
		repository.NewPositionRepository(tdb.DB),
		tdb.DB,
	)

	first, err := flow.GetOrCreateClient(ctx, &dto.GetOrCreateClientRequest{
		TelegramID: 111222333,
		Username:   "alice",
		FirstName:  "Alice",
	}, nil)
	require.NoError(t, err)

	second, err := flow.GetOrCreateClient(ctx, &dto.GetOrCreateClientRequest{
		TelegramID: 111222333,
		Username:   "alice_renamed",
		FirstName:  "Alice",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alice_renamed", second.Username)
}
