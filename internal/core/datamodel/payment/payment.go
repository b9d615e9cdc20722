package payment

import (
	"encoding/json"
	"time"
)

type Type string

const (
	TypeBooking           Type = "BOOKING"
	TypeOrder             Type = "ORDER"
	TypeMembershipNew     Type = "MEMBERSHIP_PURCHASE"
	TypeMembershipRenewal Type = "MEMBERSHIP_RENEWAL"
	TypeWalletDeposit     Type = "WALLET_DEPOSIT"
)

type Status string

const (
	StatusPending           Status = "PENDING"
	StatusPaid              Status = "PAID"
	StatusFailed            Status = "FAILED"
	StatusCancelled         Status = "CANCELLED"
	StatusExpired           Status = "EXPIRED"
	StatusRefunded          Status = "REFUNDED"
	StatusPartiallyRefunded Status = "PARTIALLY_REFUNDED"
)

// validTransitions is the whole state machine: PENDING fans out to the
// gateway-reported outcomes, only PAID can move on to refund states.
var validTransitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusFailed, StatusCancelled, StatusExpired},
	StatusPaid:    {StatusRefunded, StatusPartiallyRefunded},
}

// CanTransition reports whether a payment may move from one status to another.
// FAILED, CANCELLED, EXPIRED and REFUNDED are terminal.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Payment is the mutable payment aggregate. It is created PENDING at
// initiation and mutated only by webhook processing, never deleted.
type Payment struct {
	ID            string `gorm:"primaryKey;type:uuid"`
	PaymentNumber string `gorm:"column:payment_number;uniqueIndex;not null"`
	UserID        string `gorm:"column:user_id;index;not null"`

	BookingID      *string `gorm:"column:booking_id;index"`
	OrderID        *string `gorm:"column:order_id;index"`
	SubscriptionID *string `gorm:"column:subscription_id;index"`

	PaymentType   Type    `gorm:"column:payment_type;not null"`
	AmountCents   int64   `gorm:"column:amount_cents;not null"`
	Currency      string  `gorm:"column:currency;not null"`
	PaymentMethod *string `gorm:"column:payment_method"`

	Provider            string  `gorm:"column:provider;not null;default:FAWATERK"`
	ProviderInvoiceID   *string `gorm:"column:provider_invoice_id;index"`
	ProviderInvoiceKey  *string `gorm:"column:provider_invoice_key"`
	ProviderReferenceID *string `gorm:"column:provider_reference_id;index"`

	Status         Status          `gorm:"column:status;not null;default:PENDING"`
	PaymentDetails json.RawMessage `gorm:"column:payment_details;type:jsonb"`
	WebhookPayload json.RawMessage `gorm:"column:webhook_payload;type:jsonb"`
	WebhookEventID *string         `gorm:"column:webhook_event_id;index"`

	IdempotencyKey string `gorm:"column:idempotency_key;uniqueIndex;not null"`

	RefundAmountCents int64   `gorm:"column:refund_amount_cents;default:0"`
	ErrorMessage      *string `gorm:"column:error_message"`

	PaidAt    *time.Time `gorm:"column:paid_at"`
	FailedAt  *time.Time `gorm:"column:failed_at"`
	ExpiredAt *time.Time `gorm:"column:expired_at"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) IsTerminal() bool {
	return len(validTransitions[p.Status]) == 0
}

// WebhookLogStatus tracks one delivery through admission to completion.
// PROCESSED is final and never re-entered; FAILED rows may be retaken by a
// gateway redelivery.
type WebhookLogStatus string

const (
	WebhookReceived   WebhookLogStatus = "RECEIVED"
	WebhookProcessing WebhookLogStatus = "PROCESSING"
	WebhookProcessed  WebhookLogStatus = "PROCESSED"
	WebhookFailed     WebhookLogStatus = "FAILED"
	WebhookDuplicate  WebhookLogStatus = "DUPLICATE"
)

// WebhookLog records one gateway delivery. The unique index on EventID is the
// idempotency anchor: duplicate deliveries collapse onto the same row.
type WebhookLog struct {
	ID       string `gorm:"primaryKey;type:uuid"`
	Provider string `gorm:"column:provider;not null;default:FAWATERK"`

	EventID   string `gorm:"column:webhook_event_id;uniqueIndex;not null"`
	EventType string `gorm:"column:event_type;not null"`

	InvoiceID   string `gorm:"column:invoice_id;index"`
	InvoiceKey  string `gorm:"column:invoice_key"`
	ReferenceID string `gorm:"column:reference_id;index"`

	RawPayload   json.RawMessage `gorm:"column:raw_payload;type:jsonb"`
	HashReceived string          `gorm:"column:hash_received"`

	PaymentID *string `gorm:"column:payment_id;index"`

	Status        WebhookLogStatus `gorm:"column:status;not null;default:RECEIVED"`
	DeliveryCount int              `gorm:"column:delivery_count;default:1"`
	ErrorMessage  *string          `gorm:"column:error_message"`
	ProcessedAt   *time.Time       `gorm:"column:processed_at"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (WebhookLog) TableName() string {
	return "payment_webhook_logs"
}
