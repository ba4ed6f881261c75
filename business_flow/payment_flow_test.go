package businessflow

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmart/velmart-backend/app/services"
	"github.com/velmart/velmart-backend/config"
	"github.com/velmart/velmart-backend/models"
	"github.com/velmart/velmart-backend/repository"
)

func TestAdjustedAmount(t *testing.T) {
	tests := []struct {
		name    string
		price   float64
		cfg     config.CryptoPayConfig
		want    string
		wantErr error
	}{
		{
			name:  "whole number keeps no decimal point",
			price: 100,
			want:  "100",
		},
		{
			name:  "fraction strips trailing zeros",
			price: 12.5,
			want:  "12.5",
		},
		{
			name:  "repeating fraction truncated at default precision",
			price: 1,
			cfg:   config.CryptoPayConfig{PriceDivisor: 3},
			want:  "0.333333",
		},
		{
			name:  "custom precision",
			price: 1,
			cfg:   config.CryptoPayConfig{PriceDivisor: 3, AmountPrecision: 2},
			want:  "0.33",
		},
		{
			name:  "divisor and multiplier applied together",
			price: 200,
			cfg:   config.CryptoPayConfig{PriceDivisor: 100, PriceMultiplier: 1.5},
			want:  "3",
		},
		{
			name:  "zero divisor defaults to one",
			price: 42,
			cfg:   config.CryptoPayConfig{PriceDivisor: 0},
			want:  "42",
		},
		{
			name:    "zero price is rejected",
			price:   0,
			wantErr: ErrZeroAdjustment,
		},
		{
			name:    "negative result is rejected",
			price:   10,
			cfg:     config.CryptoPayConfig{PriceMultiplier: -1},
			wantErr: ErrZeroAdjustment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := adjustedAmount(tt.price, tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	token := "test-provider-token"
	body := []byte(`{"update_id":1,"update_type":"invoice_paid"}`)

	tests := []struct {
		name      string
		body      []byte
		signature string
		token     string
		want      bool
	}{
		{
			name:      "valid signature",
			body:      body,
			signature: signWebhookBody(body, token),
			token:     token,
			want:      true,
		},
		{
			name:      "uppercase hex with surrounding whitespace is tolerated",
			body:      body,
			signature: "  " + strings.ToUpper(signWebhookBody(body, token)) + " ",
			token:     token,
			want:      true,
		},
		{
			name:      "signature keyed by wrong token",
			body:      body,
			signature: signWebhookBody(body, "other-token"),
			token:     token,
			want:      false,
		},
		{
			name:      "tampered body",
			body:      []byte(`{"update_id":2,"update_type":"invoice_paid"}`),
			signature: signWebhookBody(body, token),
			token:     token,
			want:      false,
		},
		{
			// The HMAC key is the token itself, not a hash of it.
			name: "signature keyed by digest of the token",
			body: body,
			signature: func() string {
				derived := sha256.Sum256([]byte(token))
				mac := hmac.New(sha256.New, derived[:])
				mac.Write(body)
				return hex.EncodeToString(mac.Sum(nil))
			}(),
			token: token,
			want:  false,
		},
		{
			name:      "garbage signature",
			body:      body,
			signature: "not-a-hex-digest",
			token:     token,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, verifyWebhookSignature(tt.body, tt.signature, tt.token))
		})
	}
}

// signWebhookBody produces the provider's signature: HMAC-SHA256 over the
// raw body, keyed by the SHA-256 digest of the API token.
func signWebhookBody(body []byte, token string) string {
	mac := hmac.New(sha256.New, []byte(token))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestParseProviderTime(t *testing.T) {
	got := parseProviderTime("2026-08-01T10:30:00Z")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC), *got)

	got = parseProviderTime("2026-08-01T10:30:00.123456789Z")
	require.NotNil(t, got)
	assert.Equal(t, 123456789, got.Nanosecond())

	got = parseProviderTime("2026-08-01T10:30:00")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC), *got)

	assert.Nil(t, parseProviderTime(""))
	assert.Nil(t, parseProviderTime("yesterday"))
}

func TestPaymentStatusFrom(t *testing.T) {
	assert.Equal(t, models.PaymentStatusPaid, paymentStatusFrom("paid"))
	assert.Equal(t, models.PaymentStatusPaid, paymentStatusFrom("PAID"))
	assert.Equal(t, models.PaymentStatusExpired, paymentStatusFrom("expired"))
	assert.Equal(t, models.PaymentStatusActive, paymentStatusFrom("active"))
	assert.Equal(t, models.PaymentStatusActive, paymentStatusFrom("something-new"))
}

func TestInvoiceDescription(t *testing.T) {
	position := &models.Position{
		Name:    "Center",
		Product: models.Product{Name: "Widget"},
	}
	assert.Equal(t, "Purchase: Widget - Center", invoiceDescription("", position))
	assert.Equal(t, "Order: Widget - Center", invoiceDescription("Order", position))
}

func TestMergeInvoice(t *testing.T) {
	t.Run("provider fields override stored values", func(t *testing.T) {
		payment := &models.Payment{
			Status: models.PaymentStatusActive,
			PayURL: "https://old",
			Asset:  "USDT",
			Amount: "10",
		}
		mergeInvoice(payment, &services.CryptoInvoice{
			Status: "paid",
			PayURL: "https://new",
			Asset:  "TON",
			Amount: "11.5",
			PaidAt: "2026-08-01T10:00:00Z",
		})

		assert.Equal(t, models.PaymentStatusPaid, payment.Status)
		assert.Equal(t, "https://new", payment.PayURL)
		assert.Equal(t, "TON", payment.Asset)
		assert.Equal(t, "11.5", payment.Amount)
		require.NotNil(t, payment.PaidAt)
		assert.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), *payment.PaidAt)
	})

	t.Run("empty provider fields keep stored values", func(t *testing.T) {
		payment := &models.Payment{
			Status: models.PaymentStatusActive,
			PayURL: "https://old",
			Asset:  "USDT",
			Amount: "10",
		}
		mergeInvoice(payment, &services.CryptoInvoice{})

		assert.Equal(t, models.PaymentStatusActive, payment.Status)
		assert.Equal(t, "https://old", payment.PayURL)
		assert.Equal(t, "USDT", payment.Asset)
		assert.Equal(t, "10", payment.Amount)
		assert.Nil(t, payment.PaidAt)
	})

	t.Run("paid without paid_at falls back to now", func(t *testing.T) {
		payment := &models.Payment{Status: models.PaymentStatusActive}
		mergeInvoice(payment, &services.CryptoInvoice{Status: "paid"})

		require.NotNil(t, payment.PaidAt)
		assert.WithinDuration(t, time.Now().UTC(), *payment.PaidAt, 5*time.Second)
	})
}

// Fakes over the repository interfaces. Only the methods a given test path
// reaches are overridden; falling through to the embedded nil interface
// panics, which pins down exactly which calls each path makes.

type fakePaymentRepo struct {
	repository.PaymentRepository
	byID                func(ctx context.Context, id uint) (*models.Payment, error)
	byProviderInvoiceID func(ctx context.Context, id int64) (*models.Payment, error)
	update              func(ctx context.Context, p *models.Payment) error
	markPurchaseCreated func(ctx context.Context, paymentID uint) (bool, error)
}

func (f *fakePaymentRepo) ByID(ctx context.Context, id uint) (*models.Payment, error) {
	return f.byID(ctx, id)
}

func (f *fakePaymentRepo) ByProviderInvoiceID(ctx context.Context, id int64) (*models.Payment, error) {
	return f.byProviderInvoiceID(ctx, id)
}

func (f *fakePaymentRepo) Update(ctx context.Context, p *models.Payment) error {
	return f.update(ctx, p)
}

func (f *fakePaymentRepo) MarkPurchaseCreated(ctx context.Context, paymentID uint) (bool, error) {
	return f.markPurchaseCreated(ctx, paymentID)
}

type fakePurchaseRepo struct {
	repository.PurchaseRepository
	byPaymentID func(ctx context.Context, paymentID uint) (*models.Purchase, error)
}

func (f *fakePurchaseRepo) ByPaymentID(ctx context.Context, paymentID uint) (*models.Purchase, error) {
	return f.byPaymentID(ctx, paymentID)
}

type fakeClientRepo struct {
	repository.ClientRepository
	byID         func(ctx context.Context, id uint) (*models.Client, error)
	byTelegramID func(ctx context.Context, telegramID int64) (*models.Client, error)
}

func (f *fakeClientRepo) ByID(ctx context.Context, id uint) (*models.Client, error) {
	return f.byID(ctx, id)
}

func (f *fakeClientRepo) ByTelegramID(ctx context.Context, telegramID int64) (*models.Client, error) {
	return f.byTelegramID(ctx, telegramID)
}

func webhookFlow(paymentRepo repository.PaymentRepository, purchaseRepo repository.PurchaseRepository, clientRepo repository.ClientRepository, cfg config.CryptoPayConfig) *PaymentFlowImpl {
	return &PaymentFlowImpl{
		paymentRepo:  paymentRepo,
		purchaseRepo: purchaseRepo,
		clientRepo:   clientRepo,
		cfg:          cfg,
	}
}

type fakeInvoiceProvider struct {
	invoice *services.CryptoInvoice
	err     error
	calls   int
}

func (f *fakeInvoiceProvider) IsConfigured() bool { return true }

func (f *fakeInvoiceProvider) CreateInvoice(ctx context.Context, in services.CreateInvoiceInput) (*services.CryptoInvoice, error) {
	panic("unexpected CreateInvoice call")
}

func (f *fakeInvoiceProvider) GetInvoice(ctx context.Context, invoiceID int64) (*services.CryptoInvoice, error) {
	f.calls++
	return f.invoice, f.err
}

func paidUpdateBody(t *testing.T, invoiceID int64) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"update_id":    1,
		"update_type":  "invoice_paid",
		"request_date": "2026-08-01T10:00:00Z",
		"invoice": map[string]any{
			"invoice_id":      invoiceID,
			"status":          "paid",
			"asset":           "USDT",
			"amount":          "12.5",
			"pay_url":         "https://t.me/CryptoBot?start=inv100",
			"expiration_date": "2026-08-01T11:00:00Z",
			"paid_at":         "2026-08-01T10:00:00Z",
		},
	})
	require.NoError(t, err)
	return raw
}

func TestHandleWebhookValidation(t *testing.T) {
	token := "webhook-token"
	cfg := config.CryptoPayConfig{Token: token}
	body := paidUpdateBody(t, 100)
	ctx := context.Background()

	t.Run("missing signature", func(t *testing.T) {
		flow := webhookFlow(nil, nil, nil, cfg)
		err := flow.HandleWebhook(ctx, body, "", nil)
		assert.ErrorIs(t, err, ErrWebhookSignatureMissing)
	})

	t.Run("missing body", func(t *testing.T) {
		flow := webhookFlow(nil, nil, nil, cfg)
		err := flow.HandleWebhook(ctx, nil, signWebhookBody(body, token), nil)
		assert.ErrorIs(t, err, ErrWebhookBodyMissing)
	})

	t.Run("provider not configured", func(t *testing.T) {
		flow := webhookFlow(nil, nil, nil, config.CryptoPayConfig{})
		err := flow.HandleWebhook(ctx, body, signWebhookBody(body, token), nil)
		assert.ErrorIs(t, err, ErrProviderNotConfigured)
	})

	t.Run("invalid signature", func(t *testing.T) {
		flow := webhookFlow(nil, nil, nil, cfg)
		err := flow.HandleWebhook(ctx, body, signWebhookBody(body, "wrong-token"), nil)
		assert.ErrorIs(t, err, ErrWebhookSignatureInvalid)
	})

	t.Run("malformed payload with valid signature", func(t *testing.T) {
		garbage := []byte(`{"update_type":`)
		flow := webhookFlow(nil, nil, nil, cfg)
		err := flow.HandleWebhook(ctx, garbage, signWebhookBody(garbage, token), nil)
		assert.ErrorIs(t, err, ErrWebhookMalformed)
	})

	t.Run("non-paid update types are ignored", func(t *testing.T) {
		ignored := []byte(`{"update_id":2,"update_type":"invoice_expired","invoice":{"invoice_id":100}}`)
		// No repositories wired: any lookup would panic.
		flow := webhookFlow(nil, nil, nil, cfg)
		err := flow.HandleWebhook(ctx, ignored, signWebhookBody(ignored, token), nil)
		assert.NoError(t, err)
	})
}

func TestHandleWebhookUnknownInvoice(t *testing.T) {
	token := "webhook-token"
	body := paidUpdateBody(t, 404)

	paymentRepo := &fakePaymentRepo{
		byProviderInvoiceID: func(ctx context.Context, id int64) (*models.Payment, error) {
			assert.Equal(t, int64(404), id)
			return nil, nil
		},
	}
	flow := webhookFlow(paymentRepo, nil, nil, config.CryptoPayConfig{Token: token})

	// Unknown invoices are acknowledged, not errored, so the provider
	// stops retrying.
	err := flow.HandleWebhook(context.Background(), body, signWebhookBody(body, token), nil)
	assert.NoError(t, err)
}

func TestHandleWebhookFlagRepair(t *testing.T) {
	token := "webhook-token"
	body := paidUpdateBody(t, 100)

	stored := &models.Payment{
		ID:                7,
		TelegramID:        123456789,
		ProviderInvoiceID: 100,
		Status:            models.PaymentStatusActive,
	}
	clientID := uint(3)
	stored.ClientID = &clientID

	marked := 0
	paymentRepo := &fakePaymentRepo{
		byProviderInvoiceID: func(ctx context.Context, id int64) (*models.Payment, error) {
			return stored, nil
		},
		update: func(ctx context.Context, p *models.Payment) error {
			return nil
		},
		markPurchaseCreated: func(ctx context.Context, paymentID uint) (bool, error) {
			marked++
			assert.Equal(t, uint(7), paymentID)
			return true, nil
		},
	}
	purchaseRepo := &fakePurchaseRepo{
		byPaymentID: func(ctx context.Context, paymentID uint) (*models.Purchase, error) {
			// A purchase row already exists from an earlier delivery whose
			// flag write was lost.
			return &models.Purchase{ID: 42, ClientID: clientID}, nil
		},
	}
	clientRepo := &fakeClientRepo{
		byID: func(ctx context.Context, id uint) (*models.Client, error) {
			return &models.Client{ID: clientID, TelegramID: 123456789}, nil
		},
	}

	flow := webhookFlow(paymentRepo, purchaseRepo, clientRepo, config.CryptoPayConfig{Token: token})
	err := flow.HandleWebhook(context.Background(), body, signWebhookBody(body, token), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, marked, "flag repair must mark exactly once")
	assert.True(t, stored.PurchaseCreated)
	assert.Equal(t, models.PaymentStatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), *stored.PaidAt)
	assert.Equal(t, "USDT", stored.Asset)
	assert.Equal(t, "12.5", stored.Amount)
	assert.Equal(t, "https://t.me/CryptoBot?start=inv100", stored.PayURL)
	require.NotNil(t, stored.ExpiresAt)
	assert.Equal(t, time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC), *stored.ExpiresAt)
}

func TestHandleWebhookClientMissing(t *testing.T) {
	token := "webhook-token"
	body := paidUpdateBody(t, 100)

	stored := &models.Payment{
		ID:                9,
		TelegramID:        555,
		ProviderInvoiceID: 100,
		Status:            models.PaymentStatusActive,
	}

	paymentRepo := &fakePaymentRepo{
		byProviderInvoiceID: func(ctx context.Context, id int64) (*models.Payment, error) {
			return stored, nil
		},
		update: func(ctx context.Context, p *models.Payment) error {
			return nil
		},
		markPurchaseCreated: func(ctx context.Context, paymentID uint) (bool, error) {
			t.Fatal("must not mark the payment when the client cannot be resolved")
			return false, nil
		},
	}
	clientRepo := &fakeClientRepo{
		byTelegramID: func(ctx context.Context, telegramID int64) (*models.Client, error) {
			return nil, nil
		},
	}

	flow := webhookFlow(paymentRepo, nil, clientRepo, config.CryptoPayConfig{Token: token})

	// Materialization aborts quietly; the webhook itself still succeeds so
	// the payment stays flagged for a later retry.
	err := flow.HandleWebhook(context.Background(), body, signWebhookBody(body, token), nil)
	require.NoError(t, err)
	assert.False(t, stored.PurchaseCreated)
	assert.Equal(t, models.PaymentStatusPaid, stored.Status)
}

func TestHandleWebhookLookupFailure(t *testing.T) {
	token := "webhook-token"
	body := paidUpdateBody(t, 100)

	paymentRepo := &fakePaymentRepo{
		byProviderInvoiceID: func(ctx context.Context, id int64) (*models.Payment, error) {
			return nil, fmt.Errorf("connection reset")
		},
	}
	flow := webhookFlow(paymentRepo, nil, nil, config.CryptoPayConfig{Token: token})

	err := flow.HandleWebhook(context.Background(), body, signWebhookBody(body, token), nil)
	require.Error(t, err)

	var businessErr *BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, "WEBHOOK_PAYMENT_LOOKUP_FAILED", businessErr.Code)
}

func pollFlow(paymentRepo repository.PaymentRepository, purchaseRepo repository.PurchaseRepository, clientRepo repository.ClientRepository, provider services.InvoiceProvider) *PaymentFlowImpl {
	return &PaymentFlowImpl{
		paymentRepo:  paymentRepo,
		purchaseRepo: purchaseRepo,
		clientRepo:   clientRepo,
		provider:     provider,
		cfg:          config.CryptoPayConfig{Token: "poll-token"},
	}
}

func TestGetPaymentPollMergesProviderState(t *testing.T) {
	clientID := uint(3)
	stored := &models.Payment{
		ID:                7,
		TelegramID:        123456789,
		ProviderInvoiceID: 100,
		Status:            models.PaymentStatusActive,
	}
	stored.ClientID = &clientID

	provider := &fakeInvoiceProvider{
		invoice: &services.CryptoInvoice{
			InvoiceID:      100,
			Status:         "paid",
			Asset:          "USDT",
			Amount:         "12.5",
			PayURL:         "https://t.me/CryptoBot?start=inv100",
			ExpirationDate: "2026-08-01T11:00:00Z",
			PaidAt:         "2026-08-01T10:00:00Z",
		},
	}

	updates := 0
	marked := 0
	paymentRepo := &fakePaymentRepo{
		byID: func(ctx context.Context, id uint) (*models.Payment, error) {
			assert.Equal(t, uint(7), id)
			return stored, nil
		},
		update: func(ctx context.Context, p *models.Payment) error {
			updates++
			return nil
		},
		markPurchaseCreated: func(ctx context.Context, paymentID uint) (bool, error) {
			marked++
			return true, nil
		},
	}
	purchaseRepo := &fakePurchaseRepo{
		byPaymentID: func(ctx context.Context, paymentID uint) (*models.Purchase, error) {
			// An earlier delivery already inserted the row but its flag
			// write was lost.
			return &models.Purchase{ID: 42, ClientID: clientID}, nil
		},
	}
	clientRepo := &fakeClientRepo{
		byID: func(ctx context.Context, id uint) (*models.Client, error) {
			return &models.Client{ID: clientID, TelegramID: 123456789}, nil
		},
	}

	flow := pollFlow(paymentRepo, purchaseRepo, clientRepo, provider)
	got, err := flow.GetPayment(context.Background(), 7, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 1, updates)
	assert.Equal(t, 1, marked)
	assert.True(t, stored.PurchaseCreated)

	assert.Equal(t, string(models.PaymentStatusPaid), got.Status)
	assert.Equal(t, "USDT", got.Asset)
	assert.Equal(t, "12.5", got.Amount)
	assert.Equal(t, "https://t.me/CryptoBot?start=inv100", got.PayURL)
	require.NotNil(t, stored.ExpiresAt)
	assert.Equal(t, time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC), *stored.ExpiresAt)
	require.NotNil(t, stored.PaidAt)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), *stored.PaidAt)
}

func TestGetPaymentPollUnchangedStatusSkipsUpdate(t *testing.T) {
	stored := &models.Payment{
		ID:                8,
		TelegramID:        123456789,
		ProviderInvoiceID: 200,
		Status:            models.PaymentStatusActive,
	}

	provider := &fakeInvoiceProvider{
		invoice: &services.CryptoInvoice{InvoiceID: 200, Status: "active"},
	}

	updates := 0
	paymentRepo := &fakePaymentRepo{
		byID: func(ctx context.Context, id uint) (*models.Payment, error) {
			return stored, nil
		},
		update: func(ctx context.Context, p *models.Payment) error {
			updates++
			return nil
		},
	}

	flow := pollFlow(paymentRepo, &fakePurchaseRepo{}, &fakeClientRepo{}, provider)
	got, err := flow.GetPayment(context.Background(), 8, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 0, updates, "a poll that learns nothing new must not write")
	assert.Equal(t, string(models.PaymentStatusActive), got.Status)
}

func TestGetPaymentPollProviderFailureReturnsStored(t *testing.T) {
	stored := &models.Payment{
		ID:                9,
		TelegramID:        123456789,
		ProviderInvoiceID: 300,
		Status:            models.PaymentStatusActive,
	}

	provider := &fakeInvoiceProvider{err: ErrProviderError}
	paymentRepo := &fakePaymentRepo{
		byID: func(ctx context.Context, id uint) (*models.Payment, error) {
			return stored, nil
		},
	}

	flow := pollFlow(paymentRepo, &fakePurchaseRepo{}, &fakeClientRepo{}, provider)
	got, err := flow.GetPayment(context.Background(), 9, nil)
	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentStatusActive), got.Status)
}
