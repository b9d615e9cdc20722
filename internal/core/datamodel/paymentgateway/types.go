package paymentgateway

import "errors"

// InvoiceRequest is what the core hands to the gateway when initiating a
// payment. Amounts are minor units; the client converts to whatever the
// provider wire format wants.
type InvoiceRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	Description    string `json:"description"`

	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`

	SuccessURL string `json:"success_url"`
	FailURL    string `json:"fail_url"`
}

func (r *InvoiceRequest) Validate() error {
	if r.IdempotencyKey == "" {
		return errors.New("idempotency_key is required")
	}
	if r.AmountCents <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	return nil
}

// Invoice is the payable artifact returned by the provider. PaymentURL is
// opened by the client (mobile WebView), InvoiceID/InvoiceKey identify the
// invoice in later webhooks.
type Invoice struct {
	InvoiceID  string `json:"invoice_id"`
	InvoiceKey string `json:"invoice_key"`
	PaymentURL string `json:"payment_url"`
}

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusFailed    InvoiceStatus = "failed"
	InvoiceStatusExpired   InvoiceStatus = "expired"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// WebhookPayload is the provider callback body. Paid and failed events are
// signed over InvoiceID+InvoiceKey+PaymentMethod; expired events over
// ReferenceID+PaymentMethod. The asymmetry is the provider's, not ours.
type WebhookPayload struct {
	InvoiceID     string `json:"invoice_id"`
	InvoiceKey    string `json:"invoice_key"`
	InvoiceStatus string `json:"invoice_status"`
	ReferenceID   string `json:"referenceId"`
	PaymentMethod string `json:"payment_method"`
	AmountCents   int64  `json:"amount_cents"`
	FailureReason string `json:"failure_reason,omitempty"`
	HashKey       string `json:"hashKey"`
}
