// Package businessflow contains the core business logic and use cases for payment workflows
package businessflow

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/velmart/velmart-backend/app/dto"
	"github.com/velmart/velmart-backend/app/services"
	"github.com/velmart/velmart-backend/config"
	"github.com/velmart/velmart-backend/models"
	"github.com/velmart/velmart-backend/repository"
	"github.com/velmart/velmart-backend/utils"
	"gorm.io/gorm"
)

// PaymentFlow handles the provider invoice lifecycle: creation, lookup with
// reconciliation, and webhook processing.
type PaymentFlow interface {
	CreateInvoice(ctx context.Context, req *dto.CreateInvoiceRequest, metadata *ClientMetadata) (*dto.CreateInvoiceResponse, error)
	GetPayment(ctx context.Context, paymentID uint, metadata *ClientMetadata) (*dto.PaymentDTO, error)
	HandleWebhook(ctx context.Context, raw []byte, signature string, metadata *ClientMetadata) error
}

// PaymentFlowImpl implements PaymentFlow
type PaymentFlowImpl struct {
	paymentRepo  repository.PaymentRepository
	purchaseRepo repository.PurchaseRepository
	clientRepo   repository.ClientRepository
	positionRepo repository.PositionRepository
	provider     services.InvoiceProvider
	db           *gorm.DB
	cfg          config.CryptoPayConfig
}

func NewPaymentFlow(
	paymentRepo repository.PaymentRepository,
	purchaseRepo repository.PurchaseRepository,
	clientRepo repository.ClientRepository,
	positionRepo repository.PositionRepository,
	provider services.InvoiceProvider,
	db *gorm.DB,
	cfg config.CryptoPayConfig,
) PaymentFlow {
	return &PaymentFlowImpl{
		paymentRepo:  paymentRepo,
		purchaseRepo: purchaseRepo,
		clientRepo:   clientRepo,
		positionRepo: positionRepo,
		provider:     provider,
		db:           db,
		cfg:          cfg,
	}
}

// invoicePayload is the opaque correlation data attached to every provider
// invoice. It round-trips through the provider unchanged.
type invoicePayload struct {
	TelegramID int64 `json:"telegramId"`
	PositionID uint  `json:"positionId"`
	ClientID   uint  `json:"clientId"`
	Timestamp  int64 `json:"timestamp"`
}

func (f *PaymentFlowImpl) CreateInvoice(ctx context.Context, req *dto.CreateInvoiceRequest, metadata *ClientMetadata) (*dto.CreateInvoiceResponse, error) {
	if req.TelegramID == 0 {
		return nil, ErrTelegramIDRequired
	}
	if req.PositionID == 0 {
		return nil, ErrPositionIDRequired
	}
	if f.provider == nil || !f.provider.IsConfigured() {
		return nil, ErrProviderNotConfigured
	}

	client, err := f.clientRepo.ByTelegramID(ctx, req.TelegramID)
	if err != nil {
		return nil, NewBusinessError("PAYMENT_CLIENT_LOOKUP_FAILED", "Failed to look up client", err)
	}
	if client == nil {
		// Invoice creation never registers clients; the bot must have done
		// that on first contact.
		return nil, ErrClientNotFound
	}

	position, err := f.positionRepo.ByIDWithProduct(ctx, req.PositionID)
	if err != nil {
		return nil, NewBusinessError("PAYMENT_POSITION_LOOKUP_FAILED", "Failed to look up position", err)
	}
	if position == nil || position.Product.ID == 0 {
		return nil, ErrPositionNotFound
	}
	if position.Price <= 0 || math.IsNaN(position.Price) || math.IsInf(position.Price, 0) {
		return nil, ErrInvalidPrice
	}

	amount, err := adjustedAmount(position.Price, f.cfg)
	if err != nil {
		return nil, err
	}

	payloadJSON, _ := json.Marshal(invoicePayload{
		TelegramID: req.TelegramID,
		PositionID: position.ID,
		ClientID:   client.ID,
		Timestamp:  utils.UTCNow().Unix(),
	})

	asset := f.cfg.Asset
	if asset == "" {
		asset = utils.DefaultAsset
	}
	expiresIn := f.cfg.InvoiceExpirySeconds
	if expiresIn <= 0 {
		expiresIn = utils.DefaultInvoiceExpirySeconds
	}

	in := services.CreateInvoiceInput{
		Asset:          asset,
		Amount:         amount,
		Description:    invoiceDescription(f.cfg.DescriptionPrefix, position),
		Payload:        string(payloadJSON),
		AllowComments:  false,
		AllowAnonymous: false,
		ExpiresIn:      expiresIn,
	}
	if f.cfg.PaidButtonName != "" && f.cfg.PaidButtonURL != "" {
		in.PaidBtnName = f.cfg.PaidButtonName
		in.PaidBtnURL = f.cfg.PaidButtonURL
	}

	invoice, err := f.provider.CreateInvoice(ctx, in)
	if err != nil {
		return nil, NewBusinessError("PAYMENT_PROVIDER_CREATE_FAILED", "Failed to create provider invoice", fmt.Errorf("%w: %v", ErrProviderError, err))
	}

	payment := &models.Payment{
		TelegramID:        req.TelegramID,
		ClientID:          &client.ID,
		PositionID:        position.ID,
		ProviderInvoiceID: invoice.InvoiceID,
		Status:            paymentStatusFrom(invoice.Status),
		PayURL:            invoice.PayURL,
		Asset:             invoice.Asset,
		Amount:            invoice.Amount,
		Description:       in.Description,
		Payload:           string(payloadJSON),
		PurchaseCreated:   false,
	}
	_ = payment.SetSnapshot(&models.PositionSnapshot{
		PositionID:   position.ID,
		PositionName: position.Name,
		Price:        position.Price,
		ProductName:  position.Product.Name,
		Location:     position.Location,
	})
	if t := parseProviderTime(invoice.ExpirationDate); t != nil {
		payment.ExpiresAt = t
	} else {
		exp := utils.UTCNow().Add(time.Duration(expiresIn) * time.Second)
		payment.ExpiresAt = &exp
	}

	if err := f.paymentRepo.Save(ctx, payment); err != nil {
		return nil, NewBusinessError("PAYMENT_SAVE_FAILED", "Failed to persist payment", err)
	}

	return &dto.CreateInvoiceResponse{
		Payment: ToPaymentDTO(*payment),
		Invoice: invoice,
	}, nil
}

func (f *PaymentFlowImpl) GetPayment(ctx context.Context, paymentID uint, metadata *ClientMetadata) (*dto.PaymentDTO, error) {
	payment, err := f.paymentRepo.ByID(ctx, paymentID)
	if err != nil {
		return nil, NewBusinessError("PAYMENT_LOOKUP_FAILED", "Failed to look up payment", err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	if !payment.IsPaid() && f.provider != nil && f.provider.IsConfigured() {
		if err := f.reconcile(ctx, payment, metadata); err != nil {
			// Reconciliation is best effort; the stored record is still
			// returned on provider failure.
			log.Printf("payment %d reconcile failed: %v", payment.ID, err)
		}
	}

	d := ToPaymentDTO(*payment)
	return &d, nil
}

// reconcile pulls the invoice from the provider and folds fresher fields
// into the stored payment, materializing the purchase on a newly observed
// paid status.
func (f *PaymentFlowImpl) reconcile(ctx context.Context, payment *models.Payment, metadata *ClientMetadata) error {
	invoice, err := f.provider.GetInvoice(ctx, payment.ProviderInvoiceID)
	if err != nil {
		return err
	}
	if invoice == nil {
		return nil
	}

	prevStatus := payment.Status
	wasPaid := payment.IsPaid()
	mergeInvoice(payment, invoice)

	// Unchanged status means nothing fresher to persist.
	if payment.Status == prevStatus {
		return nil
	}
	if err := f.paymentRepo.Update(ctx, payment); err != nil {
		return err
	}

	if payment.IsPaid() && !wasPaid && !payment.PurchaseCreated {
		f.materializePurchase(ctx, payment, metadata)
	}
	return nil
}

// mergeInvoice folds provider fields into the stored payment, keeping
// stored values where the provider omits them.
func mergeInvoice(payment *models.Payment, invoice *services.CryptoInvoice) {
	if invoice.Status != "" {
		payment.Status = paymentStatusFrom(invoice.Status)
	}
	if invoice.PayURL != "" {
		payment.PayURL = invoice.PayURL
	}
	if invoice.Asset != "" {
		payment.Asset = invoice.Asset
	}
	if invoice.Amount != "" {
		payment.Amount = invoice.Amount
	}
	if t := parseProviderTime(invoice.ExpirationDate); t != nil {
		payment.ExpiresAt = t
	}
	if payment.IsPaid() && payment.PaidAt == nil {
		if t := parseProviderTime(invoice.PaidAt); t != nil {
			payment.PaidAt = t
		} else {
			now := utils.UTCNow()
			payment.PaidAt = &now
		}
	}
}

func (f *PaymentFlowImpl) HandleWebhook(ctx context.Context, raw []byte, signature string, metadata *ClientMetadata) error {
	if signature == "" {
		return ErrWebhookSignatureMissing
	}
	if len(raw) == 0 {
		return ErrWebhookBodyMissing
	}
	if !f.cfg.IsConfigured() {
		return ErrProviderNotConfigured
	}
	if !verifyWebhookSignature(raw, signature, f.cfg.Token) {
		return ErrWebhookSignatureInvalid
	}

	var update dto.WebhookUpdate
	if err := json.Unmarshal(raw, &update); err != nil {
		return ErrWebhookMalformed
	}
	if update.UpdateType != "invoice_paid" || update.Invoice == nil {
		return nil
	}

	payment, err := f.paymentRepo.ByProviderInvoiceID(ctx, update.Invoice.InvoiceID)
	if err != nil {
		return NewBusinessError("WEBHOOK_PAYMENT_LOOKUP_FAILED", "Failed to look up payment for webhook", err)
	}
	if payment == nil {
		// Unknown invoices are acknowledged so the provider stops retrying.
		log.Printf("webhook: no payment for provider invoice %d", update.Invoice.InvoiceID)
		return nil
	}

	invoice := &services.CryptoInvoice{
		InvoiceID:      update.Invoice.InvoiceID,
		Status:         update.Invoice.Status,
		Asset:          update.Invoice.Asset,
		Amount:         update.Invoice.Amount,
		PayURL:         update.Invoice.PayURL,
		ExpirationDate: update.Invoice.ExpirationDate,
		PaidAt:         update.Invoice.PaidAt,
	}
	if invoice.Status == "" {
		// invoice_paid updates carry a paid invoice even when the
		// status field is omitted.
		invoice.Status = "paid"
	}
	mergeInvoice(payment, invoice)
	if err := f.paymentRepo.Update(ctx, payment); err != nil {
		return NewBusinessError("WEBHOOK_PAYMENT_UPDATE_FAILED", "Failed to update payment from webhook", err)
	}

	if payment.IsPaid() && !payment.PurchaseCreated {
		f.materializePurchase(ctx, payment, metadata)
	}
	return nil
}

// materializePurchase converts a paid payment into a purchase history entry
// at most once. Failures are logged and swallowed: the payment stays
// unflagged and a later webhook or poll retries.
func (f *PaymentFlowImpl) materializePurchase(ctx context.Context, payment *models.Payment, metadata *ClientMetadata) {
	client, err := f.resolveClient(ctx, payment)
	if err != nil {
		log.Printf("materialize payment %d: client lookup failed: %v", payment.ID, err)
		return
	}
	if client == nil {
		log.Printf("materialize payment %d: no client for telegram %d", payment.ID, payment.TelegramID)
		return
	}

	existing, err := f.purchaseRepo.ByPaymentID(ctx, payment.ID)
	if err != nil {
		log.Printf("materialize payment %d: duplicate scan failed: %v", payment.ID, err)
		return
	}
	if existing != nil {
		// A purchase already exists but the flag write was lost. Repair the
		// flag and stop.
		if _, err := f.paymentRepo.MarkPurchaseCreated(ctx, payment.ID); err != nil {
			log.Printf("materialize payment %d: flag repair failed: %v", payment.ID, err)
			return
		}
		payment.PurchaseCreated = true
		return
	}

	snap, err := f.resolveSnapshot(ctx, payment)
	if err != nil {
		log.Printf("materialize payment %d: %v", payment.ID, err)
		return
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		won, err := f.paymentRepo.MarkPurchaseCreated(txCtx, payment.ID)
		if err != nil {
			return err
		}
		if !won {
			// Another worker already materialized this payment.
			return nil
		}
		purchase := &models.Purchase{
			ClientID:          client.ID,
			Source:            models.PurchaseSourceProviderPayment,
			PositionID:        snap.PositionID,
			PositionName:      snap.PositionName,
			Price:             snap.Price,
			ProductName:       snap.ProductName,
			Location:          snap.Location,
			PurchaseDate:      utils.UTCNow(),
			PaymentID:         &payment.ID,
			ProviderInvoiceID: &payment.ProviderInvoiceID,
		}
		return f.purchaseRepo.Save(txCtx, purchase)
	})
	if err != nil {
		log.Printf("materialize payment %d: transaction failed: %v", payment.ID, err)
		return
	}
	payment.PurchaseCreated = true
}

// resolveClient finds the purchase owner by stored client id, falling back
// to the telegram id recorded at invoice time.
func (f *PaymentFlowImpl) resolveClient(ctx context.Context, payment *models.Payment) (*models.Client, error) {
	if payment.ClientID != nil {
		client, err := f.clientRepo.ByID(ctx, *payment.ClientID)
		if err != nil {
			return nil, err
		}
		if client != nil {
			return client, nil
		}
	}
	return f.clientRepo.ByTelegramID(ctx, payment.TelegramID)
}

// resolveSnapshot returns the frozen snapshot, re-deriving it from the live
// position when the payment predates snapshot recording. A re-derived
// snapshot is persisted back onto the payment.
func (f *PaymentFlowImpl) resolveSnapshot(ctx context.Context, payment *models.Payment) (*models.PositionSnapshot, error) {
	snap, err := payment.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot decode failed: %w", err)
	}
	if snap != nil {
		return snap, nil
	}

	position, err := f.positionRepo.ByIDWithProduct(ctx, payment.PositionID)
	if err != nil {
		return nil, fmt.Errorf("position lookup failed: %w", err)
	}
	if position == nil {
		return nil, ErrSnapshotUnavailable
	}
	snap = &models.PositionSnapshot{
		PositionID:   position.ID,
		PositionName: position.Name,
		Price:        position.Price,
		ProductName:  position.Product.Name,
		Location:     position.Location,
	}
	if err := payment.SetSnapshot(snap); err != nil {
		return nil, err
	}
	if err := f.paymentRepo.Update(ctx, payment); err != nil {
		return nil, err
	}
	return snap, nil
}

// verifyWebhookSignature checks the provider's HMAC-SHA256 hex signature of
// the raw body, keyed by the API token.
func verifyWebhookSignature(raw []byte, signature, token string) bool {
	mac := hmac.New(sha256.New, []byte(token))
	mac.Write(raw)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// adjustedAmount converts a catalog price into the provider amount string:
// divide, multiply, fix the precision, then strip trailing zeros so the
// provider sees "12.5" rather than "12.500000".
func adjustedAmount(price float64, cfg config.CryptoPayConfig) (string, error) {
	divisor := cfg.PriceDivisor
	if divisor == 0 {
		divisor = 1
	}
	multiplier := cfg.PriceMultiplier
	if multiplier == 0 {
		multiplier = 1
	}
	adjusted := (price / divisor) * multiplier
	if adjusted <= 0 || math.IsNaN(adjusted) || math.IsInf(adjusted, 0) {
		return "", ErrZeroAdjustment
	}
	precision := cfg.AmountPrecision
	if precision <= 0 {
		precision = utils.DefaultAmountPrecision
	}
	s := strconv.FormatFloat(adjusted, 'f', precision, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s, nil
}

// invoiceDescription renders "{prefix}: {product} - {position}".
func invoiceDescription(prefix string, position *models.Position) string {
	if prefix == "" {
		prefix = "Purchase"
	}
	return fmt.Sprintf("%s: %s - %s", prefix, position.Product.Name, position.Name)
}

// paymentStatusFrom maps a provider status string onto the stored enum,
// defaulting unrecognized values to active.
func paymentStatusFrom(status string) models.PaymentStatus {
	switch strings.ToLower(status) {
	case "paid":
		return models.PaymentStatusPaid
	case "expired":
		return models.PaymentStatusExpired
	default:
		return models.PaymentStatusActive
	}
}

// parseProviderTime parses the provider's ISO 8601 timestamps, tolerating
// both RFC 3339 and a bare "2006-01-02T15:04:05" shape.
func parseProviderTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}
