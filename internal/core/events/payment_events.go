package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
	EventTypePaymentExpired   = "payment.expired"
)

// PaymentCompletedEvent fires after the webhook transaction commits; handlers
// do post-commit work only (notifications, analytics), never ledger writes.
type PaymentCompletedEvent struct {
	BaseEvent
	PaymentID     string `json:"payment_id"`
	UserID        string `json:"user_id"`
	PaymentType   string `json:"payment_type"`
	InvoiceID     string `json:"invoice_id"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method"`
}

func NewPaymentCompletedEvent(paymentID, userID, paymentType, invoiceID string, amountCents int64, currency, paymentMethod string) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"user_id":        userID,
				"payment_type":   paymentType,
				"invoice_id":     invoiceID,
				"amount_cents":   amountCents,
				"currency":       currency,
				"payment_method": paymentMethod,
			},
		},
		PaymentID:     paymentID,
		UserID:        userID,
		PaymentType:   paymentType,
		InvoiceID:     invoiceID,
		AmountCents:   amountCents,
		Currency:      currency,
		PaymentMethod: paymentMethod,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	PaymentID     string `json:"payment_id"`
	UserID        string `json:"user_id"`
	InvoiceID     string `json:"invoice_id"`
	AmountCents   int64  `json:"amount_cents"`
	FailureReason string `json:"failure_reason"`
}

func NewPaymentFailedEvent(paymentID, userID, invoiceID string, amountCents int64, failureReason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"user_id":        userID,
				"invoice_id":     invoiceID,
				"amount_cents":   amountCents,
				"failure_reason": failureReason,
			},
		},
		PaymentID:     paymentID,
		UserID:        userID,
		InvoiceID:     invoiceID,
		AmountCents:   amountCents,
		FailureReason: failureReason,
	}
}
