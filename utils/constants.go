package utils

import (
	"time"
)

// ContextKey is the type for values stored on request contexts
type ContextKey string

// EndpointKey carries the request's endpoint path on the context
const EndpointKey ContextKey = "endpoint"

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for admin access tokens (12 hours)
	AccessTokenTTL = 12 * time.Hour

	// RefreshTokenTTL is the time-to-live for admin refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Payment and purchase constants
const (
	// DefaultAsset is the asset symbol used for invoices when none is configured
	DefaultAsset = "USDT"

	// DefaultAmountPrecision is the decimal precision for formatted invoice amounts
	DefaultAmountPrecision = 6

	// DefaultInvoiceExpirySeconds is the lifetime of a provider invoice
	DefaultInvoiceExpirySeconds = 3600

	// DefaultTestTopUpAmount is the balance credit applied by the test top-up endpoint
	DefaultTestTopUpAmount = 25

	// DefaultCatalogPageSize is the page size for catalog search when none is given
	DefaultCatalogPageSize = 10
)
