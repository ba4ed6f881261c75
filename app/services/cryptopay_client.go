package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// InvoiceProvider abstracts the external payment provider for the payment
// flow. The production implementation is CryptoPayClient.
type InvoiceProvider interface {
	IsConfigured() bool
	CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*CryptoInvoice, error)
	GetInvoice(ctx context.Context, invoiceID int64) (*CryptoInvoice, error)
}

// CryptoPayClient talks to the Crypto Pay HTTPS API (pay.crypt.bot).
type CryptoPayClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewCryptoPayClient creates a provider client. An empty token yields a
// client that reports itself unconfigured; callers must check before use.
func NewCryptoPayClient(baseURL, token string, timeout time.Duration) *CryptoPayClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CryptoPayClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
		Timeout:    timeout,
	}
}

func (c *CryptoPayClient) Name() string { return "crypto-pay" }

// IsConfigured reports whether the provider credential is present.
func (c *CryptoPayClient) IsConfigured() bool { return c.Token != "" }

// CreateInvoiceInput carries the parameters for POST /createInvoice.
type CreateInvoiceInput struct {
	Asset          string `json:"asset"`
	Amount         string `json:"amount"`
	Description    string `json:"description,omitempty"`
	Payload        string `json:"payload,omitempty"`
	AllowComments  bool   `json:"allow_comments"`
	AllowAnonymous bool   `json:"allow_anonymous"`
	ExpiresIn      int    `json:"expires_in,omitempty"`
	PaidBtnName    string `json:"paid_btn_name,omitempty"`
	PaidBtnURL     string `json:"paid_btn_url,omitempty"`
}

// CryptoInvoice is the provider's invoice object. Timestamps are the
// provider's ISO 8601 strings; the flow parses the ones it stores.
type CryptoInvoice struct {
	InvoiceID      int64  `json:"invoice_id"`
	Status         string `json:"status"`
	Hash           string `json:"hash"`
	Asset          string `json:"asset"`
	Amount         string `json:"amount"`
	PayURL         string `json:"pay_url"`
	Description    string `json:"description"`
	Payload        string `json:"payload"`
	CreatedAt      string `json:"created_at"`
	ExpirationDate string `json:"expiration_date"`
	PaidAt         string `json:"paid_at"`
	PaidAnonymous  bool   `json:"paid_anonymously"`
}

type cryptoPayError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

type cryptoPayEnvelope struct {
	Ok     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *cryptoPayError `json:"error"`
}

// CreateInvoice creates a remote invoice and returns the provider's invoice
// object verbatim.
func (c *CryptoPayClient) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*CryptoInvoice, error) {
	var env cryptoPayEnvelope
	if err := c.postJSON(ctx, "/createInvoice", in, &env); err != nil {
		return nil, err
	}
	if !env.Ok {
		return nil, fmt.Errorf("crypto-pay: createInvoice failed: %s", env.errorMessage())
	}
	var invoice CryptoInvoice
	if err := json.Unmarshal(env.Result, &invoice); err != nil {
		return nil, fmt.Errorf("crypto-pay: decode invoice: %w", err)
	}
	return &invoice, nil
}

type getInvoicesResult struct {
	Items []CryptoInvoice `json:"items"`
}

// GetInvoice fetches a single invoice by id via GET /getInvoices. Returns
// (nil, nil) when the provider no longer knows the invoice.
func (c *CryptoPayClient) GetInvoice(ctx context.Context, invoiceID int64) (*CryptoInvoice, error) {
	q := url.Values{}
	q.Set("invoice_ids", strconv.FormatInt(invoiceID, 10))

	var env cryptoPayEnvelope
	if err := c.getJSON(ctx, "/getInvoices?"+q.Encode(), &env); err != nil {
		return nil, err
	}
	if !env.Ok {
		return nil, fmt.Errorf("crypto-pay: getInvoices failed: %s", env.errorMessage())
	}

	// Depending on API version the result is either a bare array or an
	// object with an items array.
	var invoices []CryptoInvoice
	if err := json.Unmarshal(env.Result, &invoices); err != nil {
		var wrapped getInvoicesResult
		if err := json.Unmarshal(env.Result, &wrapped); err != nil {
			return nil, fmt.Errorf("crypto-pay: decode invoices: %w", err)
		}
		invoices = wrapped.Items
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return &invoices[0], nil
}

func (e *cryptoPayEnvelope) errorMessage() string {
	if e.Error == nil {
		return "unknown error"
	}
	if e.Error.Name != "" {
		return fmt.Sprintf("%s (code %d)", e.Error.Name, e.Error.Code)
	}
	return fmt.Sprintf("code %d", e.Error.Code)
}

// HTTP helpers
func (c *CryptoPayClient) postJSON(ctx context.Context, path string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Crypto-Pay-Api-Token", c.Token)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *CryptoPayClient) getJSON(ctx context.Context, pathAndQuery string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+pathAndQuery, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Crypto-Pay-Api-Token", c.Token)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}
