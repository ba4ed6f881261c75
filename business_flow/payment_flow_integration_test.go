package businessflow

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmart/velmart-backend/app/services"
	"github.com/velmart/velmart-backend/config"
	"github.com/velmart/velmart-backend/models"
	"github.com/velmart/velmart-backend/repository"
)

func TestWebhookMaterializesPurchaseExactlyOnce(t *testing.T) {
	tdb, fixtures := setupIntegrationDB(t)
	ctx := context.Background()

	client, err := fixtures.CreateTestClient(0)
	require.NoError(t, err)
	position, err := fixtures.CreateTestCatalog(50)
	require.NoError(t, err)
	payment, err := fixtures.CreateTestPayment(client, position, models.PaymentStatusActive)
	require.NoError(t, err)

	cfg := config.CryptoPayConfig{Token: "integration-token"}
	flow := NewPaymentFlow(
		repository.NewPaymentRepository(tdb.DB),
		repository.NewPurchaseRepository(tdb.DB),
		repository.NewClientRepository(tdb.DB),
		repository.NewPositionRepository(tdb.DB),
		nil,
		tdb.DB,
		cfg,
	)

	body := paidUpdateBody(t, payment.ProviderInvoiceID)
	sig := signWebhookBody(body, cfg.Token)

	// The provider retries webhook deliveries; both must succeed and only
	// the first may create a purchase.
	require.NoError(t, flow.HandleWebhook(ctx, body, sig, nil))
	require.NoError(t, flow.HandleWebhook(ctx, body, sig, nil))

	var purchases []models.Purchase
	require.NoError(t, tdb.DB.Where("payment_id = ?", payment.ID).Find(&purchases).Error)
	require.Len(t, purchases, 1)

	purchase := purchases[0]
	assert.Equal(t, models.PurchaseSourceProviderPayment, purchase.Source)
	assert.Equal(t, client.ID, purchase.ClientID)
	assert.Equal(t, position.ID, purchase.PositionID)
	assert.InDelta(t, position.Price, purchase.Price, 0.0001)
	require.NotNil(t, purchase.ProviderInvoiceID)
	assert.Equal(t, payment.ProviderInvoiceID, *purchase.ProviderInvoiceID)

	var fresh models.Payment
	require.NoError(t, tdb.DB.First(&fresh, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusPaid, fresh.Status)
	assert.True(t, fresh.PurchaseCreated)
	assert.NotNil(t, fresh.PaidAt)
}

func TestWebhookMaterializationSurvivesDeletedPosition(t *testing.T) {
	tdb, fixtures := setupIntegrationDB(t)
	ctx := context.Background()

	client, err := fixtures.CreateTestClient(0)
	require.NoError(t, err)
	position, err := fixtures.CreateTestCatalog(75)
	require.NoError(t, err)
	payment, err := fixtures.CreateTestPayment(client, position, models.PaymentStatusActive)
	require.NoError(t, err)

	// The position disappears between invoice creation and payment. The
	// frozen snapshot on the payment must carry the materialization.
	require.NoError(t, tdb.DB.Delete(&models.Position{}, position.ID).Error)

	cfg := config.CryptoPayConfig{Token: "integration-token"}
	flow := NewPaymentFlow(
		repository.NewPaymentRepository(tdb.DB),
		repository.NewPurchaseRepository(tdb.DB),
		repository.NewClientRepository(tdb.DB),
		repository.NewPositionRepository(tdb.DB),
		nil,
		tdb.DB,
		cfg,
	)

	body := paidUpdateBody(t, payment.ProviderInvoiceID)
	require.NoError(t, flow.HandleWebhook(ctx, body, signWebhookBody(body, cfg.Token), nil))

	var purchases []models.Purchase
	require.NoError(t, tdb.DB.Where("payment_id = ?", payment.ID).Find(&purchases).Error)
	require.Len(t, purchases, 1)
	assert.InDelta(t, position.Price, purchases[0].Price, 0.0001)
	assert.Equal(t, position.Name, purchases[0].PositionName)
}

func TestGetPaymentPollMaterializesPurchase(t *testing.T) {
	tdb, fixtures := setupIntegrationDB(t)
	ctx := context.Background()

	client, err := fixtures.CreateTestClient(0)
	require.NoError(t, err)
	position, err := fixtures.CreateTestCatalog(60)
	require.NoError(t, err)
	payment, err := fixtures.CreateTestPayment(client, position, models.PaymentStatusActive)
	require.NoError(t, err)

	provider := &fakeInvoiceProvider{
		invoice: &services.CryptoInvoice{
			InvoiceID: payment.ProviderInvoiceID,
			Status:    "paid",
			PayURL:    "https://t.me/CryptoBot?start=poll",
			PaidAt:    "2026-08-01T10:00:00Z",
		},
	}
	flow := NewPaymentFlow(
		repository.NewPaymentRepository(tdb.DB),
		repository.NewPurchaseRepository(tdb.DB),
		repository.NewClientRepository(tdb.DB),
		repository.NewPositionRepository(tdb.DB),
		provider,
		tdb.DB,
		config.CryptoPayConfig{Token: "integration-token"},
	)

	// When no webhook arrived, polling the payment must pull the paid
	// invoice and create the purchase in the same call.
	got, err := flow.GetPayment(ctx, payment.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentStatusPaid), got.Status)
	assert.Equal(t, "https://t.me/CryptoBot?start=poll", got.PayURL)

	var purchases []models.Purchase
	require.NoError(t, tdb.DB.Where("payment_id = ?", payment.ID).Find(&purchases).Error)
	require.Len(t, purchases, 1)
	assert.Equal(t, models.PurchaseSourceProviderPayment, purchases[0].Source)

	var fresh models.Payment
	require.NoError(t, tdb.DB.First(&fresh, payment.ID).Error)
	assert.True(t, fresh.PurchaseCreated)

	// A later poll of the now-paid payment must not call the provider again.
	before := provider.calls
	_, err = flow.GetPayment(ctx, payment.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, before, provider.calls)
}

func TestConcurrentWebhookAndPollMaterializeOnce(t *testing.T) {
	tdb, fixtures := setupIntegrationDB(t)
	ctx := context.Background()

	client, err := fixtures.CreateTestClient(0)
	require.NoError(t, err)
	position, err := fixtures.CreateTestCatalog(80)
	require.NoError(t, err)
	payment, err := fixtures.CreateTestPayment(client, position, models.PaymentStatusActive)
	require.NoError(t, err)

	cfg := config.CryptoPayConfig{Token: "integration-token"}
	provider := &fakeInvoiceProvider{
		invoice: &services.CryptoInvoice{
			InvoiceID: payment.ProviderInvoiceID,
			Status:    "paid",
			PaidAt:    "2026-08-01T10:00:00Z",
		},
	}
	flow := NewPaymentFlow(
		repository.NewPaymentRepository(tdb.DB),
		repository.NewPurchaseRepository(tdb.DB),
		repository.NewClientRepository(tdb.DB),
		repository.NewPositionRepository(tdb.DB),
		provider,
		tdb.DB,
		cfg,
	)

	body := paidUpdateBody(t, payment.ProviderInvoiceID)
	sig := signWebhookBody(body, cfg.Token)

	// A webhook delivery and a client poll race for the same payment; the
	// flag handoff inside the transaction must let only one insert through.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, flow.HandleWebhook(ctx, body, sig, nil))
	}()
	go func() {
		defer wg.Done()
		_, pollErr := flow.GetPayment(ctx, payment.ID, nil)
		assert.NoError(t, pollErr)
	}()
	wg.Wait()

	var purchases []models.Purchase
	require.NoError(t, tdb.DB.Where("payment_id = ?", payment.ID).Find(&purchases).Error)
	require.Len(t, purchases, 1)

	var fresh models.Payment
	require.NoError(t, tdb.DB.First(&fresh, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusPaid, fresh.Status)
	assert.True(t, fresh.PurchaseCreated)
}
