package handlers

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	businessflow "github.com/velmart/velmart-backend/business_flow"
)

func TestMapPaymentErrStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "telegram id required",
			err:        businessflow.ErrTelegramIDRequired,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "payment not found",
			err:        businessflow.ErrPaymentNotFound,
			wantStatus: fiber.StatusNotFound,
		},
		{
			name:       "invalid price",
			err:        businessflow.ErrInvalidPrice,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "zero adjusted amount",
			err:        businessflow.ErrZeroAdjustment,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "provider not configured",
			err:        businessflow.ErrProviderNotConfigured,
			wantStatus: fiber.StatusInternalServerError,
		},
		{
			name:       "provider call failed",
			err:        businessflow.ErrProviderError,
			wantStatus: fiber.StatusInternalServerError,
		},
		{
			name:       "unclassified error",
			err:        errors.New("boom"),
			wantStatus: fiber.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/x", func(c fiber.Ctx) error {
				return mapPaymentErr(c, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
