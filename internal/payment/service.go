package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/altayar/tourism-backend/internal"
	"github.com/altayar/tourism-backend/internal/booking"
	bookingdm "github.com/altayar/tourism-backend/internal/core/datamodel/booking"
	membershipdm "github.com/altayar/tourism-backend/internal/core/datamodel/membership"
	orderdm "github.com/altayar/tourism-backend/internal/core/datamodel/order"
	paymentdm "github.com/altayar/tourism-backend/internal/core/datamodel/payment"
	gatewaydm "github.com/altayar/tourism-backend/internal/core/datamodel/paymentgateway"
	"github.com/altayar/tourism-backend/internal/membership"
	"github.com/altayar/tourism-backend/internal/order"
)

// Service creates payments and drives them to the gateway. Webhook-side
// mutation lives in WebhookProcessor; the service only ever writes PENDING
// payments and their gateway bookkeeping.
type Service struct {
	payments    PaymentRepository
	bookings    booking.Repository
	orders      order.Repository
	memberships membership.Repository
	gateway     GatewayClient
	cfg         internal.PaymentConfig
	logger      *slog.Logger
}

func NewService(payments PaymentRepository, bookings booking.Repository, orders order.Repository, memberships membership.Repository, gateway GatewayClient, cfg internal.PaymentConfig, logger *slog.Logger) *Service {
	return &Service{
		payments:    payments,
		bookings:    bookings,
		orders:      orders,
		memberships: memberships,
		gateway:     gateway,
		cfg:         cfg,
		logger:      logger,
	}
}

// InitiationResult is what the client needs to take the user to checkout.
type InitiationResult struct {
	PaymentID     string
	PaymentNumber string
	AmountCents   int64
	Currency      string
	Status        paymentdm.Status
	PaymentURL    string
}

// InitiateBookingPayment creates a PENDING payment for an unpaid booking and
// opens a gateway invoice for it.
func (s *Service) InitiateBookingPayment(ctx context.Context, userID, bookingID string) (*InitiationResult, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, internal.ErrBookingNotFound
	}
	if b.PaymentStatus == bookingdm.PaymentPaid {
		return nil, internal.ErrPaymentAlreadyPaid
	}
	if b.Status == bookingdm.StatusCancelled {
		return nil, internal.NewConflictError("booking is cancelled", internal.ErrCodeBookingNotFound)
	}

	pay := s.newPayment(userID, paymentdm.TypeBooking, b.TotalAmountCents, b.Currency)
	pay.BookingID = &b.ID

	description := fmt.Sprintf("booking %s", b.BookingNumber)
	if b.TitleEN != "" {
		description = b.TitleEN
	}
	return s.openInvoice(ctx, pay, description)
}

// InitiateOrderPayment creates a PENDING payment for an unpaid product order
// and opens a gateway invoice for it.
func (s *Service) InitiateOrderPayment(ctx context.Context, userID, orderID string) (*InitiationResult, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, internal.ErrOrderNotFound
	}
	if o.PaymentStatus == orderdm.PaymentPaid {
		return nil, internal.ErrPaymentAlreadyPaid
	}
	if o.Status == orderdm.StatusCancelled {
		return nil, internal.NewConflictError("order is cancelled", internal.ErrCodeOrderNotFound)
	}

	pay := s.newPayment(userID, paymentdm.TypeOrder, o.TotalAmountCents, o.Currency)
	pay.OrderID = &o.ID

	return s.openInvoice(ctx, pay, fmt.Sprintf("order %s", o.OrderNumber))
}

// InitiateMembershipPayment creates (or reuses) the user's subscription in
// PENDING_PAYMENT and opens an invoice for the plan price. Whether this is a
// purchase or a renewal depends on whether the user already holds an active
// subscription to the same plan.
func (s *Service) InitiateMembershipPayment(ctx context.Context, userID, planID string) (*InitiationResult, error) {
	plan, err := s.memberships.PlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, internal.ErrPlanNotFound
	}

	paymentType := paymentdm.TypeMembershipNew
	sub, err := s.memberships.SubscriptionByUser(ctx, userID)
	switch {
	case err == nil && sub.Status == membershipdm.SubscriptionActive && sub.PlanID == plan.ID:
		paymentType = paymentdm.TypeMembershipRenewal
	case err == nil:
		// Existing subscription switching plan or pending payment: repoint it.
		sub.PlanID = plan.ID
		if sub.Status != membershipdm.SubscriptionActive {
			sub.Status = membershipdm.SubscriptionPendingPayment
		}
		if err := s.memberships.UpdateSubscription(ctx, sub); err != nil {
			return nil, err
		}
	default:
		if _, ok := internal.IsAppError(err); !ok {
			return nil, err
		}
		sub = &membershipdm.Subscription{
			ID:               uuid.NewString(),
			UserID:           userID,
			PlanID:           plan.ID,
			MembershipNumber: fmt.Sprintf("MEM-%d-%s", time.Now().UTC().Year(), uuid.NewString()[:8]),
			Status:           membershipdm.SubscriptionPendingPayment,
		}
		if err := s.memberships.CreateSubscription(ctx, sub); err != nil {
			return nil, err
		}
	}

	pay := s.newPayment(userID, paymentType, plan.PriceCents, plan.Currency)
	pay.SubscriptionID = &sub.ID

	return s.openInvoice(ctx, pay, fmt.Sprintf("%s membership", plan.TierName))
}

// InitiateWalletDeposit opens an invoice that, once paid, credits the
// user's wallet ledger.
func (s *Service) InitiateWalletDeposit(ctx context.Context, userID string, amountCents int64) (*InitiationResult, error) {
	if amountCents <= 0 {
		return nil, internal.NewValidationError("deposit amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}

	pay := s.newPayment(userID, paymentdm.TypeWalletDeposit, amountCents, s.cfg.Currency)
	return s.openInvoice(ctx, pay, fmt.Sprintf("wallet deposit for %s", userID))
}

func (s *Service) GetPayment(ctx context.Context, userID, paymentID string) (*paymentdm.Payment, error) {
	pay, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if pay.UserID != userID {
		return nil, internal.ErrPaymentNotFound
	}
	return pay, nil
}

func (s *Service) ListUserPayments(ctx context.Context, userID string, limit, offset int) ([]paymentdm.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.payments.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) newPayment(userID string, paymentType paymentdm.Type, amountCents int64, currency string) *paymentdm.Payment {
	if currency == "" {
		currency = s.cfg.Currency
	}
	return &paymentdm.Payment{
		ID:             uuid.NewString(),
		UserID:         userID,
		PaymentType:    paymentType,
		AmountCents:    amountCents,
		Currency:       currency,
		Provider:       "FAWATERK",
		Status:         paymentdm.StatusPending,
		IdempotencyKey: uuid.NewString(),
	}
}

// openInvoice persists the PENDING payment, asks the gateway for an invoice
// and stores the provider identifiers the webhook will use to find the
// payment again. Gateway failure marks the payment FAILED; the client can
// initiate again.
func (s *Service) openInvoice(ctx context.Context, pay *paymentdm.Payment, description string) (*InitiationResult, error) {
	seq, err := s.payments.NextSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate payment number: %w", err)
	}
	pay.PaymentNumber = fmt.Sprintf("PAY-%d-%06d", time.Now().UTC().Year(), seq)

	if err := s.payments.Create(ctx, pay); err != nil {
		s.logger.Error("failed to create payment record",
			"error", err,
			"user_id", pay.UserID,
			"payment_type", pay.PaymentType)
		return nil, fmt.Errorf("create payment record: %w", err)
	}

	s.logger.Info("payment created",
		"payment_id", pay.ID,
		"payment_number", pay.PaymentNumber,
		"payment_type", pay.PaymentType,
		"amount_cents", pay.AmountCents)

	invoice, err := s.gateway.CreateInvoice(ctx, &gatewaydm.InvoiceRequest{
		IdempotencyKey: pay.IdempotencyKey,
		AmountCents:    pay.AmountCents,
		Currency:       pay.Currency,
		Description:    description,
		SuccessURL:     s.cfg.SuccessURL,
		FailURL:        s.cfg.FailURL,
	})
	if err != nil {
		s.logger.Error("gateway invoice creation failed",
			"error", err,
			"payment_id", pay.ID)
		s.markInitiationFailed(ctx, pay, err)
		return nil, internal.NewExternalError("payment gateway unavailable", err)
	}

	pay.ProviderInvoiceID = &invoice.InvoiceID
	pay.ProviderInvoiceKey = &invoice.InvoiceKey
	details, _ := json.Marshal(invoice)
	pay.PaymentDetails = details
	if err := s.payments.Update(ctx, pay); err != nil {
		return nil, fmt.Errorf("store provider invoice: %w", err)
	}

	return &InitiationResult{
		PaymentID:     pay.ID,
		PaymentNumber: pay.PaymentNumber,
		AmountCents:   pay.AmountCents,
		Currency:      pay.Currency,
		Status:        pay.Status,
		PaymentURL:    invoice.PaymentURL,
	}, nil
}

func (s *Service) markInitiationFailed(ctx context.Context, pay *paymentdm.Payment, cause error) {
	now := time.Now().UTC()
	msg := cause.Error()
	pay.Status = paymentdm.StatusFailed
	pay.FailedAt = &now
	pay.ErrorMessage = &msg
	if err := s.payments.Update(ctx, pay); err != nil {
		s.logger.Error("failed to mark payment FAILED after gateway error",
			"payment_id", pay.ID,
			"error", err)
	}
}
