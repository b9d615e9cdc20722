package payment

import (
	"time"

	"github.com/altayar/tourism-backend/internal"
	"github.com/altayar/tourism-backend/internal/core/common/validation"
	paymentdm "github.com/altayar/tourism-backend/internal/core/datamodel/payment"
)

// maxDepositCents caps a single wallet top-up; larger amounts go through
// support, not the self-service API.
const maxDepositCents = 100_000_00

type InitiateBookingPaymentRequest struct {
	BookingID string `json:"booking_id"`
}

func (r *InitiateBookingPaymentRequest) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("booking_id", r.BookingID).Required()
	return v.Validate()
}

type InitiateOrderPaymentRequest struct {
	OrderID string `json:"order_id"`
}

func (r *InitiateOrderPaymentRequest) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("order_id", r.OrderID).Required()
	return v.Validate()
}

type InitiateMembershipPaymentRequest struct {
	PlanID string `json:"plan_id"`
}

func (r *InitiateMembershipPaymentRequest) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("plan_id", r.PlanID).Required()
	return v.Validate()
}

type InitiateWalletDepositRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

func (r *InitiateWalletDepositRequest) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("amount_cents", r.AmountCents).Required().
		MinInt(1, internal.ErrCodeInvalidAmount).
		MaxInt(maxDepositCents, internal.ErrCodeInvalidAmount)
	return v.Validate()
}

type InitiationResponse struct {
	PaymentID     string `json:"payment_id"`
	PaymentNumber string `json:"payment_number"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	PaymentURL    string `json:"payment_url"`
}

type PaymentResponse struct {
	ID            string     `json:"id"`
	PaymentNumber string     `json:"payment_number"`
	PaymentType   string     `json:"payment_type"`
	AmountCents   int64      `json:"amount_cents"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	PaymentMethod *string    `json:"payment_method,omitempty"`
	BookingID     *string    `json:"booking_id,omitempty"`
	OrderID       *string    `json:"order_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type WebhookResponse struct {
	Status string `json:"status"`
}

func toInitiationResponse(res *InitiationResult) InitiationResponse {
	return InitiationResponse{
		PaymentID:     res.PaymentID,
		PaymentNumber: res.PaymentNumber,
		AmountCents:   res.AmountCents,
		Currency:      res.Currency,
		Status:        string(res.Status),
		PaymentURL:    res.PaymentURL,
	}
}

func toPaymentResponse(p *paymentdm.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		PaymentNumber: p.PaymentNumber,
		PaymentType:   string(p.PaymentType),
		AmountCents:   p.AmountCents,
		Currency:      p.Currency,
		Status:        string(p.Status),
		PaymentMethod: p.PaymentMethod,
		BookingID:     p.BookingID,
		OrderID:       p.OrderID,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	}
}
