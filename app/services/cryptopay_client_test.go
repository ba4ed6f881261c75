package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptoPayClientIsConfigured(t *testing.T) {
	assert.False(t, NewCryptoPayClient("https://pay.crypt.bot/api", "", 0).IsConfigured())
	assert.True(t, NewCryptoPayClient("https://pay.crypt.bot/api", "token", 0).IsConfigured())
}

func TestCryptoPayClientCreateInvoice(t *testing.T) {
	var gotToken string
	var gotBody CreateInvoiceInput

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/createInvoice", r.URL.Path)
		gotToken = r.Header.Get("Crypto-Pay-Api-Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"invoice_id": 4242,
				"status":     "active",
				"asset":      "USDT",
				"amount":     "12.5",
				"pay_url":    "https://t.me/CryptoBot?start=IVxyz",
			},
		})
	}))
	defer srv.Close()

	client := NewCryptoPayClient(srv.URL, "secret-token", 5*time.Second)

	invoice, err := client.CreateInvoice(context.Background(), CreateInvoiceInput{
		Asset:          "USDT",
		Amount:         "12.5",
		Description:    "Purchase: Widget - Center",
		Payload:        `{"telegramId":1}`,
		AllowComments:  false,
		AllowAnonymous: false,
		ExpiresIn:      3600,
	})
	require.NoError(t, err)
	require.NotNil(t, invoice)

	assert.Equal(t, "secret-token", gotToken)
	assert.Equal(t, "USDT", gotBody.Asset)
	assert.Equal(t, "12.5", gotBody.Amount)
	assert.False(t, gotBody.AllowComments)
	assert.False(t, gotBody.AllowAnonymous)
	assert.Equal(t, 3600, gotBody.ExpiresIn)

	assert.Equal(t, int64(4242), invoice.InvoiceID)
	assert.Equal(t, "active", invoice.Status)
	assert.Equal(t, "https://t.me/CryptoBot?start=IVxyz", invoice.PayURL)
}

func TestCryptoPayClientCreateInvoiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":    false,
			"error": map[string]any{"code": 400, "name": "AMOUNT_TOO_SMALL"},
		})
	}))
	defer srv.Close()

	client := NewCryptoPayClient(srv.URL, "secret-token", 5*time.Second)

	invoice, err := client.CreateInvoice(context.Background(), CreateInvoiceInput{Asset: "USDT", Amount: "0"})
	assert.Error(t, err)
	assert.Nil(t, invoice)
	assert.Contains(t, err.Error(), "AMOUNT_TOO_SMALL")
}

func TestCryptoPayClientGetInvoice(t *testing.T) {
	tests := []struct {
		name   string
		result any
		found  bool
	}{
		{
			name: "bare array result",
			result: []map[string]any{
				{"invoice_id": 7, "status": "paid", "paid_at": "2026-08-01T10:00:00Z"},
			},
			found: true,
		},
		{
			name: "wrapped items result",
			result: map[string]any{
				"items": []map[string]any{
					{"invoice_id": 7, "status": "paid", "paid_at": "2026-08-01T10:00:00Z"},
				},
			},
			found: true,
		},
		{
			name:   "unknown invoice",
			result: []map[string]any{},
			found:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodGet, r.Method)
				require.Equal(t, "/getInvoices", r.URL.Path)
				require.Equal(t, "7", r.URL.Query().Get("invoice_ids"))

				json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": tt.result})
			}))
			defer srv.Close()

			client := NewCryptoPayClient(srv.URL, "secret-token", 5*time.Second)

			invoice, err := client.GetInvoice(context.Background(), 7)
			require.NoError(t, err)

			if tt.found {
				require.NotNil(t, invoice)
				assert.Equal(t, int64(7), invoice.InvoiceID)
				assert.Equal(t, "paid", invoice.Status)
			} else {
				assert.Nil(t, invoice)
			}
		})
	}
}
