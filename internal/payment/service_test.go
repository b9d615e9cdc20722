package payment_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/altayar/tourism-backend/internal"
	bookingdm "github.com/altayar/tourism-backend/internal/core/datamodel/booking"
	membershipdm "github.com/altayar/tourism-backend/internal/core/datamodel/membership"
	orderdm "github.com/altayar/tourism-backend/internal/core/datamodel/order"
	paymentdm "github.com/altayar/tourism-backend/internal/core/datamodel/payment"
	gatewaydm "github.com/altayar/tourism-backend/internal/core/datamodel/paymentgateway"
	paymentpkg "github.com/altayar/tourism-backend/internal/payment"
)

// Mock repositories for testing

type mockPaymentRepository struct {
	payments    map[string]*paymentdm.Payment
	seq         int64
	createError error
}

func newMockPaymentRepository() *mockPaymentRepository {
	return &mockPaymentRepository{payments: make(map[string]*paymentdm.Payment)}
}

func (m *mockPaymentRepository) Create(ctx context.Context, p *paymentdm.Payment) error {
	if m.createError != nil {
		return m.createError
	}
	p.CreatedAt = time.Now().UTC()
	m.payments[p.ID] = p
	return nil
}

func (m *mockPaymentRepository) GetByID(ctx context.Context, id string) (*paymentdm.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, internal.ErrPaymentNotFound
	}
	return p, nil
}

func (m *mockPaymentRepository) GetByProviderInvoiceID(ctx context.Context, invoiceID string) (*paymentdm.Payment, error) {
	for _, p := range m.payments {
		if p.ProviderInvoiceID != nil && *p.ProviderInvoiceID == invoiceID {
			return p, nil
		}
	}
	return nil, internal.ErrPaymentNotFound
}

func (m *mockPaymentRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]paymentdm.Payment, error) {
	var out []paymentdm.Payment
	for _, p := range m.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepository) Update(ctx context.Context, p *paymentdm.Payment) error {
	m.payments[p.ID] = p
	return nil
}

func (m *mockPaymentRepository) NextSequence(ctx context.Context) (int64, error) {
	m.seq++
	return m.seq, nil
}

type mockBookingRepository struct {
	bookings map[string]*bookingdm.Booking
}

func (m *mockBookingRepository) GetByID(ctx context.Context, id string) (*bookingdm.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, internal.ErrBookingNotFound
	}
	return b, nil
}

func (m *mockBookingRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	return nil
}

type mockOrderRepository struct {
	orders map[string]*orderdm.Order
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*orderdm.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, internal.ErrOrderNotFound
	}
	return o, nil
}

func (m *mockOrderRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	return nil
}

type mockMembershipRepository struct {
	plans         map[string]*membershipdm.Plan
	subscriptions map[string]*membershipdm.Subscription
}

func newMockMembershipRepository() *mockMembershipRepository {
	return &mockMembershipRepository{
		plans:         make(map[string]*membershipdm.Plan),
		subscriptions: make(map[string]*membershipdm.Subscription),
	}
}

func (m *mockMembershipRepository) PlanByID(ctx context.Context, id string) (*membershipdm.Plan, error) {
	p, ok := m.plans[id]
	if !ok {
		return nil, internal.ErrPlanNotFound
	}
	return p, nil
}

func (m *mockMembershipRepository) ListActivePlans(ctx context.Context) ([]membershipdm.Plan, error) {
	return nil, nil
}

func (m *mockMembershipRepository) ActivePlanForUser(ctx context.Context, userID string) (*membershipdm.Plan, error) {
	return nil, nil
}

func (m *mockMembershipRepository) SubscriptionByID(ctx context.Context, id string) (*membershipdm.Subscription, error) {
	s, ok := m.subscriptions[id]
	if !ok {
		return nil, internal.ErrSubscriptionNotFound
	}
	return s, nil
}

func (m *mockMembershipRepository) SubscriptionByUser(ctx context.Context, userID string) (*membershipdm.Subscription, error) {
	for _, s := range m.subscriptions {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, internal.ErrSubscriptionNotFound
}

func (m *mockMembershipRepository) CreateSubscription(ctx context.Context, sub *membershipdm.Subscription) error {
	m.subscriptions[sub.ID] = sub
	return nil
}

func (m *mockMembershipRepository) UpdateSubscription(ctx context.Context, sub *membershipdm.Subscription) error {
	m.subscriptions[sub.ID] = sub
	return nil
}

type mockGateway struct {
	invoices    int
	createError error
}

func (m *mockGateway) CreateInvoice(ctx context.Context, req *gatewaydm.InvoiceRequest) (*gatewaydm.Invoice, error) {
	if m.createError != nil {
		return nil, m.createError
	}
	m.invoices++
	return &gatewaydm.Invoice{
		InvoiceID:  "inv-1",
		InvoiceKey: "key-1",
		PaymentURL: "https://pay.example/inv-1",
	}, nil
}

func (m *mockGateway) CheckStatus(ctx context.Context, invoiceID string) (gatewaydm.InvoiceStatus, error) {
	return gatewaydm.InvoiceStatusPending, nil
}

var _ = Describe("Payment Service", func() {
	var (
		payments    *mockPaymentRepository
		bookings    *mockBookingRepository
		orders      *mockOrderRepository
		memberships *mockMembershipRepository
		gateway     *mockGateway
		service     *paymentpkg.Service
		ctx         context.Context
	)

	const userID = "user-1"

	cfg := internal.PaymentConfig{
		Provider:   "fawaterk",
		Currency:   "USD",
		SuccessURL: "https://app.example/success",
		FailURL:    "https://app.example/fail",
	}

	BeforeEach(func() {
		payments = newMockPaymentRepository()
		bookings = &mockBookingRepository{bookings: make(map[string]*bookingdm.Booking)}
		orders = &mockOrderRepository{orders: make(map[string]*orderdm.Order)}
		memberships = newMockMembershipRepository()
		gateway = &mockGateway{}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = paymentpkg.NewService(payments, bookings, orders, memberships, gateway, cfg, logger)
		ctx = context.Background()
	})

	Describe("InitiateBookingPayment", func() {
		BeforeEach(func() {
			bookings.bookings["bkg-1"] = &bookingdm.Booking{
				ID:               "bkg-1",
				BookingNumber:    "BKG-001",
				UserID:           userID,
				TotalAmountCents: 15000,
				Currency:         "USD",
				Status:           bookingdm.StatusPending,
				PaymentStatus:    bookingdm.PaymentUnpaid,
			}
		})

		It("creates a pending payment with an invoice and payment URL", func() {
			res, err := service.InitiateBookingPayment(ctx, userID, "bkg-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Status).To(Equal(paymentdm.StatusPending))
			Expect(res.AmountCents).To(Equal(int64(15000)))
			Expect(res.PaymentURL).To(Equal("https://pay.example/inv-1"))
			Expect(strings.HasPrefix(res.PaymentNumber, "PAY-")).To(BeTrue())

			stored, err := payments.GetByID(ctx, res.PaymentID)
			Expect(err).ToNot(HaveOccurred())
			Expect(*stored.ProviderInvoiceID).To(Equal("inv-1"))
			Expect(*stored.BookingID).To(Equal("bkg-1"))
		})

		It("allocates distinct payment numbers", func() {
			res1, err := service.InitiateBookingPayment(ctx, userID, "bkg-1")
			Expect(err).ToNot(HaveOccurred())
			res2, err := service.InitiateBookingPayment(ctx, userID, "bkg-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(res1.PaymentNumber).ToNot(Equal(res2.PaymentNumber))
		})

		It("rejects a booking owned by someone else", func() {
			_, err := service.InitiateBookingPayment(ctx, "intruder", "bkg-1")
			Expect(err).To(MatchError(internal.ErrBookingNotFound))
		})

		It("rejects an already paid booking", func() {
			bookings.bookings["bkg-1"].PaymentStatus = bookingdm.PaymentPaid
			_, err := service.InitiateBookingPayment(ctx, userID, "bkg-1")
			Expect(err).To(MatchError(internal.ErrPaymentAlreadyPaid))
		})

		It("marks the payment FAILED when the gateway rejects the invoice", func() {
			gateway.createError = errors.New("gateway down")

			_, err := service.InitiateBookingPayment(ctx, userID, "bkg-1")
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeGatewayFailure))

			var failed *paymentdm.Payment
			for _, p := range payments.payments {
				failed = p
			}
			Expect(failed).ToNot(BeNil())
			Expect(failed.Status).To(Equal(paymentdm.StatusFailed))
			Expect(failed.ErrorMessage).ToNot(BeNil())
		})
	})

	Describe("InitiateOrderPayment", func() {
		BeforeEach(func() {
			orders.orders["ord-1"] = &orderdm.Order{
				ID:               "ord-1",
				OrderNumber:      "ORD-001",
				UserID:           userID,
				TotalAmountCents: 7500,
				Currency:         "USD",
				Status:           orderdm.StatusIssued,
				PaymentStatus:    orderdm.PaymentUnpaid,
			}
		})

		It("creates a pending ORDER payment linked to the order", func() {
			res, err := service.InitiateOrderPayment(ctx, userID, "ord-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Status).To(Equal(paymentdm.StatusPending))
			Expect(res.AmountCents).To(Equal(int64(7500)))
			Expect(res.PaymentURL).To(Equal("https://pay.example/inv-1"))

			stored, err := payments.GetByID(ctx, res.PaymentID)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.PaymentType).To(Equal(paymentdm.TypeOrder))
			Expect(*stored.OrderID).To(Equal("ord-1"))
			Expect(stored.BookingID).To(BeNil())
		})

		It("rejects an order owned by someone else", func() {
			_, err := service.InitiateOrderPayment(ctx, "intruder", "ord-1")
			Expect(err).To(MatchError(internal.ErrOrderNotFound))
		})

		It("rejects an already paid order", func() {
			orders.orders["ord-1"].PaymentStatus = orderdm.PaymentPaid
			_, err := service.InitiateOrderPayment(ctx, userID, "ord-1")
			Expect(err).To(MatchError(internal.ErrPaymentAlreadyPaid))
		})

		It("rejects a cancelled order", func() {
			orders.orders["ord-1"].Status = orderdm.StatusCancelled
			_, err := service.InitiateOrderPayment(ctx, userID, "ord-1")
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeOrderNotFound))
		})
	})

	Describe("InitiateMembershipPayment", func() {
		days := 365

		BeforeEach(func() {
			memberships.plans["plan-gold"] = &membershipdm.Plan{
				ID:           "plan-gold",
				TierCode:     "GOLD",
				TierName:     "Gold",
				PriceCents:   9900,
				Currency:     "USD",
				DurationDays: &days,
				IsActive:     true,
			}
		})

		It("creates a pending subscription for a new member", func() {
			res, err := service.InitiateMembershipPayment(ctx, userID, "plan-gold")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.AmountCents).To(Equal(int64(9900)))

			sub, err := memberships.SubscriptionByUser(ctx, userID)
			Expect(err).ToNot(HaveOccurred())
			Expect(sub.Status).To(Equal(membershipdm.SubscriptionPendingPayment))

			stored, _ := payments.GetByID(ctx, res.PaymentID)
			Expect(stored.PaymentType).To(Equal(paymentdm.TypeMembershipNew))
			Expect(*stored.SubscriptionID).To(Equal(sub.ID))
		})

		It("issues a renewal payment for an active subscriber of the same plan", func() {
			memberships.subscriptions["sub-1"] = &membershipdm.Subscription{
				ID:     "sub-1",
				UserID: userID,
				PlanID: "plan-gold",
				Status: membershipdm.SubscriptionActive,
			}

			res, err := service.InitiateMembershipPayment(ctx, userID, "plan-gold")
			Expect(err).ToNot(HaveOccurred())

			stored, _ := payments.GetByID(ctx, res.PaymentID)
			Expect(stored.PaymentType).To(Equal(paymentdm.TypeMembershipRenewal))
		})

		It("rejects an inactive plan", func() {
			memberships.plans["plan-gold"].IsActive = false
			_, err := service.InitiateMembershipPayment(ctx, userID, "plan-gold")
			Expect(err).To(MatchError(internal.ErrPlanNotFound))
		})
	})

	Describe("InitiateWalletDeposit", func() {
		It("opens an invoice for a positive amount", func() {
			res, err := service.InitiateWalletDeposit(ctx, userID, 5000)
			Expect(err).ToNot(HaveOccurred())

			stored, _ := payments.GetByID(ctx, res.PaymentID)
			Expect(stored.PaymentType).To(Equal(paymentdm.TypeWalletDeposit))
			Expect(stored.Currency).To(Equal("USD"))
		})

		It("rejects non-positive amounts", func() {
			_, err := service.InitiateWalletDeposit(ctx, userID, 0)
			Expect(err).To(HaveOccurred())
			_, err = service.InitiateWalletDeposit(ctx, userID, -100)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GetPayment", func() {
		It("hides other users' payments", func() {
			res, err := service.InitiateWalletDeposit(ctx, userID, 5000)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.GetPayment(ctx, "intruder", res.PaymentID)
			Expect(err).To(MatchError(internal.ErrPaymentNotFound))
		})
	})
})
