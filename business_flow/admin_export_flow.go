// Package businessflow contains the core business logic and use cases for admin export workflows
package businessflow

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/velmart/velmart-backend/app/dto"
	"github.com/velmart/velmart-backend/models"
	"github.com/velmart/velmart-backend/repository"
	"github.com/velmart/velmart-backend/utils"
	"github.com/xuri/excelize/v2"
)

// AdminExportFlow produces the payments spreadsheet for the admin panel.
type AdminExportFlow interface {
	ExportPayments(ctx context.Context, q *dto.PaymentExportQuery, metadata *ClientMetadata) (string, []byte, error)
}

// AdminExportFlowImpl implements AdminExportFlow
type AdminExportFlowImpl struct {
	paymentRepo repository.PaymentRepository
}

func NewAdminExportFlow(paymentRepo repository.PaymentRepository) AdminExportFlow {
	return &AdminExportFlowImpl{paymentRepo: paymentRepo}
}

const exportPageSize = 500

// ExportPayments renders all payments matching the filter into an xlsx
// workbook and returns the suggested filename plus the file bytes.
func (f *AdminExportFlowImpl) ExportPayments(ctx context.Context, q *dto.PaymentExportQuery, metadata *ClientMetadata) (string, []byte, error) {
	filter := models.PaymentFilter{}
	if q.Status != "" {
		status := models.PaymentStatus(q.Status)
		filter.Status = &status
	}
	var start, end *time.Time
	if q.StartDate != "" {
		t, err := time.Parse("2006-01-02", q.StartDate)
		if err != nil {
			return "", nil, NewBusinessError("EXPORT_VALIDATION_FAILED", "start_date must be YYYY-MM-DD", err)
		}
		start = utils.ToPtr(t.UTC())
		filter.CreatedAfter = start
	}
	if q.EndDate != "" {
		t, err := time.Parse("2006-01-02", q.EndDate)
		if err != nil {
			return "", nil, NewBusinessError("EXPORT_VALIDATION_FAILED", "end_date must be YYYY-MM-DD", err)
		}
		end = utils.ToPtr(t.UTC().Add(24*time.Hour - time.Nanosecond))
		filter.CreatedBefore = end
	}
	if start != nil && end != nil && start.After(*end) {
		return "", nil, ErrStartDateAfterEnd
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "Payments"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"id", "telegram_id", "client_id", "position_id", "provider_invoice_id", "status", "asset", "amount", "description", "purchase_created", "paid_at", "expires_at", "created_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	row := 2
	offset := 0
	for {
		payments, err := f.paymentRepo.ListByFilter(ctx, filter, exportPageSize, offset)
		if err != nil {
			return "", nil, NewBusinessError("EXPORT_QUERY_FAILED", "Failed to query payments", err)
		}
		for _, p := range payments {
			clientID := ""
			if p.ClientID != nil {
				clientID = strconv.FormatUint(uint64(*p.ClientID), 10)
			}
			paidAt := ""
			if p.PaidAt != nil {
				paidAt = p.PaidAt.Format(time.RFC3339)
			}
			expiresAt := ""
			if p.ExpiresAt != nil {
				expiresAt = p.ExpiresAt.Format(time.RFC3339)
			}
			record := []any{
				p.ID,
				p.TelegramID,
				clientID,
				p.PositionID,
				p.ProviderInvoiceID,
				string(p.Status),
				p.Asset,
				p.Amount,
				p.Description,
				p.PurchaseCreated,
				paidAt,
				expiresAt,
				p.CreatedAt.Format(time.RFC3339),
			}
			cellRef, _ := excelize.CoordinatesToCellName(1, row)
			_ = xl.SetSheetRow(sheet, cellRef, &record)
			row++
		}
		if len(payments) < exportPageSize {
			break
		}
		offset += exportPageSize
	}

	buf := &bytes.Buffer{}
	if err := xl.Write(buf); err != nil {
		return "", nil, NewBusinessError("EXPORT_RENDER_FAILED", "Failed to render workbook", err)
	}

	filename := "payments_" + utils.UTCNow().Format("20060102_150405") + ".xlsx"
	return filename, buf.Bytes(), nil
}
