// Package businessflow contains the core business logic and use cases for the marketplace workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Client-related errors
	ErrClientNotFound      = errors.New("client not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrZeroAdjustment      = errors.New("adjustment amount must be non-zero")

	// Catalog-related errors
	ErrPositionNotFound    = errors.New("position not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrCategoryNotEmpty    = errors.New("category still has products")
	ErrCityNotFound        = errors.New("city not found")
	ErrDistrictNotFound    = errors.New("district not found")
	ErrInvalidPrice        = errors.New("position price must be a positive number")
	ErrNameRequired        = errors.New("name is required")
	ErrContentKeyRequired  = errors.New("content key is required")
	ErrContentNotFound     = errors.New("content not found")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
	ErrNoReviewsProvided   = errors.New("at least one review is required")
	ErrInvalidPage         = errors.New("page must be at least 1")
	ErrInvalidPageSize     = errors.New("page size must be between 1 and 100")
	ErrStartDateAfterEnd   = errors.New("start date cannot be after end date")
	ErrUnsupportedImage    = errors.New("unsupported image type")
	ErrImageTooLarge       = errors.New("image exceeds the size limit")

	// Payment-related errors
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrProviderNotConfigured = errors.New("payment provider is not configured")
	ErrProviderError        = errors.New("payment provider call failed")
	ErrTelegramIDRequired   = errors.New("telegram ID is required")
	ErrPositionIDRequired   = errors.New("position ID is required")
	ErrSnapshotUnavailable  = errors.New("position snapshot unavailable")

	// Webhook errors
	ErrWebhookSignatureMissing = errors.New("webhook signature header is missing")
	ErrWebhookBodyMissing      = errors.New("webhook body is missing")
	ErrWebhookSignatureInvalid = errors.New("webhook signature is invalid")
	ErrWebhookMalformed        = errors.New("webhook payload is malformed")

	// Admin auth errors
	ErrAdminNotFound     = errors.New("admin not found")
	ErrAdminInactive     = errors.New("admin account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrCaptchaFailed     = errors.New("captcha verification failed")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsClientNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound)
}

func IsInsufficientBalance(err error) bool {
	return errors.Is(err, ErrInsufficientBalance)
}

func IsZeroAdjustment(err error) bool {
	return errors.Is(err, ErrZeroAdjustment)
}

func IsPositionNotFound(err error) bool {
	return errors.Is(err, ErrPositionNotFound)
}

func IsProductNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound)
}

func IsCategoryNotFound(err error) bool {
	return errors.Is(err, ErrCategoryNotFound)
}

func IsCategoryNotEmpty(err error) bool {
	return errors.Is(err, ErrCategoryNotEmpty)
}

func IsCityNotFound(err error) bool {
	return errors.Is(err, ErrCityNotFound)
}

func IsDistrictNotFound(err error) bool {
	return errors.Is(err, ErrDistrictNotFound)
}

func IsInvalidPrice(err error) bool {
	return errors.Is(err, ErrInvalidPrice)
}

func IsNameRequired(err error) bool {
	return errors.Is(err, ErrNameRequired)
}

func IsContentNotFound(err error) bool {
	return errors.Is(err, ErrContentNotFound)
}

func IsInvalidRating(err error) bool {
	return errors.Is(err, ErrInvalidRating)
}

func IsPaymentNotFound(err error) bool {
	return errors.Is(err, ErrPaymentNotFound)
}

func IsProviderNotConfigured(err error) bool {
	return errors.Is(err, ErrProviderNotConfigured)
}

func IsProviderError(err error) bool {
	return errors.Is(err, ErrProviderError)
}

func IsTelegramIDRequired(err error) bool {
	return errors.Is(err, ErrTelegramIDRequired)
}

func IsPositionIDRequired(err error) bool {
	return errors.Is(err, ErrPositionIDRequired)
}

func IsSnapshotUnavailable(err error) bool {
	return errors.Is(err, ErrSnapshotUnavailable)
}

func IsWebhookSignatureMissing(err error) bool {
	return errors.Is(err, ErrWebhookSignatureMissing)
}

func IsWebhookBodyMissing(err error) bool {
	return errors.Is(err, ErrWebhookBodyMissing)
}

func IsWebhookSignatureInvalid(err error) bool {
	return errors.Is(err, ErrWebhookSignatureInvalid)
}

func IsWebhookMalformed(err error) bool {
	return errors.Is(err, ErrWebhookMalformed)
}

func IsAdminNotFound(err error) bool {
	return errors.Is(err, ErrAdminNotFound)
}

func IsAdminInactive(err error) bool {
	return errors.Is(err, ErrAdminInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsCaptchaFailed(err error) bool {
	return errors.Is(err, ErrCaptchaFailed)
}

func IsUnsupportedImage(err error) bool {
	return errors.Is(err, ErrUnsupportedImage)
}

func IsImageTooLarge(err error) bool {
	return errors.Is(err, ErrImageTooLarge)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

func IsContentKeyRequired(err error) bool {
	return errors.Is(err, ErrContentKeyRequired)
}

func IsNoReviewsProvided(err error) bool {
	return errors.Is(err, ErrNoReviewsProvided)
}

func IsStartDateAfterEnd(err error) bool {
	return errors.Is(err, ErrStartDateAfterEnd)
}
