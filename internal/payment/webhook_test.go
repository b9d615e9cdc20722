package payment_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/altayar/tourism-backend/internal"
	bookingdm "github.com/altayar/tourism-backend/internal/core/datamodel/booking"
	ledgerdm "github.com/altayar/tourism-backend/internal/core/datamodel/ledger"
	membershipdm "github.com/altayar/tourism-backend/internal/core/datamodel/membership"
	orderdm "github.com/altayar/tourism-backend/internal/core/datamodel/order"
	paymentdm "github.com/altayar/tourism-backend/internal/core/datamodel/payment"
	gatewaydm "github.com/altayar/tourism-backend/internal/core/datamodel/paymentgateway"
	paymentpkg "github.com/altayar/tourism-backend/internal/payment"
	paymentpg "github.com/altayar/tourism-backend/internal/payment/postgres"
)

// sqlite-compatible schemas: jsonb columns become text.
const createPaymentsTable = `
CREATE TABLE payments (
	id TEXT PRIMARY KEY,
	payment_number TEXT NOT NULL UNIQUE,
	user_id TEXT NOT NULL,
	booking_id TEXT,
	order_id TEXT,
	subscription_id TEXT,
	payment_type TEXT NOT NULL,
	amount_cents INTEGER NOT NULL,
	currency TEXT NOT NULL,
	payment_method TEXT,
	provider TEXT NOT NULL DEFAULT 'FAWATERK',
	provider_invoice_id TEXT,
	provider_invoice_key TEXT,
	provider_reference_id TEXT,
	status TEXT NOT NULL DEFAULT 'PENDING',
	payment_details TEXT,
	webhook_payload TEXT,
	webhook_event_id TEXT,
	idempotency_key TEXT NOT NULL UNIQUE,
	refund_amount_cents INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	paid_at DATETIME,
	failed_at DATETIME,
	expired_at DATETIME,
	created_at DATETIME,
	updated_at DATETIME
)`

const createWebhookLogsTable = `
CREATE TABLE payment_webhook_logs (
	id TEXT PRIMARY KEY,
	provider TEXT NOT NULL DEFAULT 'FAWATERK',
	webhook_event_id TEXT NOT NULL UNIQUE,
	event_type TEXT NOT NULL,
	invoice_id TEXT,
	invoice_key TEXT,
	reference_id TEXT,
	raw_payload TEXT,
	hash_received TEXT,
	payment_id TEXT,
	status TEXT NOT NULL DEFAULT 'RECEIVED',
	delivery_count INTEGER NOT NULL DEFAULT 1,
	error_message TEXT,
	processed_at DATETIME,
	created_at DATETIME,
	updated_at DATETIME
)`

const createLedgerTableTmpl = `
CREATE TABLE %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	amount INTEGER NOT NULL,
	balance_before INTEGER NOT NULL,
	balance_after INTEGER NOT NULL,
	reference_type TEXT NOT NULL,
	reference_id TEXT NOT NULL,
	description TEXT,
	created_at DATETIME
)`

var _ = Describe("WebhookProcessor", func() {
	var (
		db        *gorm.DB
		processor *paymentpkg.WebhookProcessor
		verifier  *paymentpkg.SignatureVerifier
		logRepo   paymentpkg.WebhookLogRepository
		ctx       context.Context
	)

	const vendorKey = "vendor-secret"
	const userID = "user-1"

	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	seedPayment := func(paymentType paymentdm.Type, amountCents int64, invoiceID string) *paymentdm.Payment {
		invoiceKey := "key-" + invoiceID
		pay := &paymentdm.Payment{
			ID:                 "pay-" + invoiceID,
			PaymentNumber:      "PAY-2026-" + invoiceID,
			UserID:             userID,
			PaymentType:        paymentType,
			AmountCents:        amountCents,
			Currency:           "USD",
			Provider:           "FAWATERK",
			ProviderInvoiceID:  &invoiceID,
			ProviderInvoiceKey: &invoiceKey,
			Status:             paymentdm.StatusPending,
			IdempotencyKey:     "idem-" + invoiceID,
		}
		Expect(db.Create(pay).Error).To(Succeed())
		return pay
	}

	seedBooking := func(id string, amountCents int64) *bookingdm.Booking {
		b := &bookingdm.Booking{
			ID:               id,
			BookingNumber:    "BKG-" + id,
			UserID:           userID,
			TitleEN:          "Desert safari",
			TotalAmountCents: amountCents,
			Currency:         "USD",
			Status:           bookingdm.StatusPending,
			PaymentStatus:    bookingdm.PaymentUnpaid,
		}
		Expect(db.Create(b).Error).To(Succeed())
		return b
	}

	seedGoldMembership := func() *membershipdm.Subscription {
		days := 365
		plan := &membershipdm.Plan{
			ID:               "plan-gold",
			TierCode:         "GOLD",
			TierName:         "Gold",
			TierOrder:        2,
			PriceCents:       9900,
			Currency:         "USD",
			DurationDays:     &days,
			InitialPoints:    500,
			CashbackRate:     3.0,
			PointsMultiplier: 1.5,
			IsActive:         true,
		}
		Expect(db.Create(plan).Error).To(Succeed())

		sub := &membershipdm.Subscription{
			ID:               "sub-1",
			UserID:           userID,
			PlanID:           plan.ID,
			MembershipNumber: "MEM-2026-0001",
			Status:           membershipdm.SubscriptionActive,
		}
		Expect(db.Create(sub).Error).To(Succeed())
		return sub
	}

	signedPayload := func(pay *paymentdm.Payment, status gatewaydm.InvoiceStatus) *gatewaydm.WebhookPayload {
		p := &gatewaydm.WebhookPayload{
			InvoiceID:     *pay.ProviderInvoiceID,
			InvoiceKey:    *pay.ProviderInvoiceKey,
			InvoiceStatus: string(status),
			ReferenceID:   pay.IdempotencyKey,
			PaymentMethod: "card",
			AmountCents:   pay.AmountCents,
		}
		if status == gatewaydm.InvoiceStatusFailed {
			p.FailureReason = "insufficient funds"
		}
		p.HashKey = verifier.Sign(p)
		return p
	}

	deliver := func(payload *gatewaydm.WebhookPayload) (*paymentpkg.WebhookResult, error) {
		raw, err := json.Marshal(payload)
		Expect(err).ToNot(HaveOccurred())
		return processor.Process(ctx, payload, raw)
	}

	reloadPayment := func(id string) *paymentdm.Payment {
		var pay paymentdm.Payment
		Expect(db.Where("id = ?", id).First(&pay).Error).To(Succeed())
		return &pay
	}

	reloadLog := func(payload *gatewaydm.WebhookPayload) *paymentdm.WebhookLog {
		var log paymentdm.WebhookLog
		Expect(db.Where("invoice_id = ? AND event_type = ?", payload.InvoiceID, payload.InvoiceStatus).
			First(&log).Error).To(Succeed())
		return &log
	}

	ledgerEntries := func(lt ledgerdm.Type) []ledgerdm.Entry {
		var entries []ledgerdm.Entry
		Expect(db.Table(lt.TableName()).Where("user_id = ?", userID).Order("id ASC").Find(&entries).Error).To(Succeed())
		return entries
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			NowFunc: func() time.Time { return time.Now().UTC() },
		})
		Expect(err).ToNot(HaveOccurred())

		Expect(db.Exec(createPaymentsTable).Error).To(Succeed())
		Expect(db.Exec(createWebhookLogsTable).Error).To(Succeed())
		for _, lt := range []ledgerdm.Type{ledgerdm.TypeWallet, ledgerdm.TypePoints, ledgerdm.TypeCashback} {
			Expect(db.Exec(fmt.Sprintf(createLedgerTableTmpl, lt.TableName())).Error).To(Succeed())
		}
		Expect(db.AutoMigrate(&bookingdm.Booking{}, &orderdm.Order{}, &membershipdm.Plan{}, &membershipdm.Subscription{})).To(Succeed())

		verifier = paymentpkg.NewSignatureVerifier(vendorKey)
		logRepo = paymentpg.NewWebhookLogRepository(db)
		dispatcher := paymentpkg.NewDispatcher(testLogger)
		uow := paymentpg.NewUnitOfWork(db)
		processor = paymentpkg.NewWebhookProcessor(uow, logRepo, verifier, dispatcher, nil, testLogger)
		ctx = context.Background()
	})

	Describe("paid booking webhook", func() {
		var (
			booking *bookingdm.Booking
			pay     *paymentdm.Payment
		)

		BeforeEach(func() {
			seedGoldMembership()
			booking = seedBooking("bkg-1", 10000)
			pay = seedPayment(paymentdm.TypeBooking, 10000, "5001")
			pay.BookingID = &booking.ID
			Expect(db.Save(pay).Error).To(Succeed())
		})

		It("transitions the payment, confirms the booking and accrues tier rewards", func() {
			payload := signedPayload(pay, gatewaydm.InvoiceStatusPaid)
			result, err := deliver(payload)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(paymentpkg.ResultProcessed))

			updated := reloadPayment(pay.ID)
			Expect(updated.Status).To(Equal(paymentdm.StatusPaid))
			Expect(updated.PaidAt).ToNot(BeNil())

			var b bookingdm.Booking
			Expect(db.First(&b, "id = ?", booking.ID).Error).To(Succeed())
			Expect(b.Status).To(Equal(bookingdm.StatusConfirmed))
			Expect(b.PaymentStatus).To(Equal(bookingdm.PaymentPaid))

			// gold tier: 3% cashback, 1.5x points on 10000 cents
			cashback := ledgerEntries(ledgerdm.TypeCashback)
			Expect(cashback).To(HaveLen(1))
			Expect(cashback[0].Amount).To(Equal(int64(300)))

			points := ledgerEntries(ledgerdm.TypePoints)
			Expect(points).To(HaveLen(1))
			Expect(points[0].Amount).To(Equal(int64(15)))

			log := reloadLog(payload)
			Expect(log.Status).To(Equal(paymentdm.WebhookProcessed))
			Expect(log.PaymentID).ToNot(BeNil())
			Expect(*log.PaymentID).To(Equal(pay.ID))
		})

		It("treats a redelivery as already processed without double-crediting", func() {
			payload := signedPayload(pay, gatewaydm.InvoiceStatusPaid)
			_, err := deliver(payload)
			Expect(err).ToNot(HaveOccurred())

			result, err := deliver(payload)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(paymentpkg.ResultAlreadyProcessed))

			Expect(ledgerEntries(ledgerdm.TypeCashback)).To(HaveLen(1))
			Expect(ledgerEntries(ledgerdm.TypePoints)).To(HaveLen(1))

			log := reloadLog(payload)
			Expect(log.DeliveryCount).To(Equal(2))
		})

		It("rejects a forged signature without touching anything", func() {
			payload := signedPayload(pay, gatewaydm.InvoiceStatusPaid)
			payload.HashKey = "forged"

			raw, _ := json.Marshal(payload)
			_, err := processor.Process(ctx, payload, raw)
			Expect(err).To(MatchError(internal.ErrInvalidSignature))

			Expect(reloadPayment(pay.ID).Status).To(Equal(paymentdm.StatusPending))
			Expect(ledgerEntries(ledgerdm.TypeCashback)).To(BeEmpty())

			log := reloadLog(payload)
			Expect(log.Status).To(Equal(paymentdm.WebhookFailed))
		})

		It("lets a correctly signed retry retake a failed delivery", func() {
			payload := signedPayload(pay, gatewaydm.InvoiceStatusPaid)
			goodHash := payload.HashKey

			payload.HashKey = "forged"
			raw, _ := json.Marshal(payload)
			_, err := processor.Process(ctx, payload, raw)
			Expect(err).To(HaveOccurred())

			payload.HashKey = goodHash
			result, err := deliver(payload)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(paymentpkg.ResultProcessed))
			Expect(reloadPayment(pay.ID).Status).To(Equal(paymentdm.StatusPaid))
		})

		It("rolls back the status change when the post-payment action fails", func() {
			missing := "bkg-missing"
			pay.BookingID = &missing
			Expect(db.Save(pay).Error).To(Succeed())

			payload := signedPayload(pay, gatewaydm.InvoiceStatusPaid)
			_, err := deliver(payload)
			Expect(err).To(HaveOccurred())

			Expect(reloadPayment(pay.ID).Status).To(Equal(paymentdm.StatusPending))
			Expect(ledgerEntries(ledgerdm.TypeCashback)).To(BeEmpty())
			Expect(reloadLog(payload).Status).To(Equal(paymentdm.WebhookFailed))
		})
	})

	Describe("paid order webhook", func() {
		It("marks the order paid and accrues tier rewards", func() {
			seedGoldMembership()
			o := &orderdm.Order{
				ID:               "ord-1",
				OrderNumber:      "ORD-001",
				UserID:           userID,
				TotalAmountCents: 12000,
				Currency:         "USD",
				Status:           orderdm.StatusIssued,
				PaymentStatus:    orderdm.PaymentUnpaid,
			}
			Expect(db.Create(o).Error).To(Succeed())

			pay := seedPayment(paymentdm.TypeOrder, 12000, "5007")
			pay.OrderID = &o.ID
			Expect(db.Save(pay).Error).To(Succeed())

			payload := signedPayload(pay, gatewaydm.InvoiceStatusPaid)
			result, err := deliver(payload)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(paymentpkg.ResultProcessed))

			Expect(reloadPayment(pay.ID).Status).To(Equal(paymentdm.StatusPaid))

			var updated orderdm.Order
			Expect(db.First(&updated, "id = ?", o.ID).Error).To(Succeed())
			Expect(updated.Status).To(Equal(orderdm.StatusPaid))
			Expect(updated.PaymentStatus).To(Equal(orderdm.PaymentPaid))
			Expect(updated.PaidAt).ToNot(BeNil())

			// gold tier: 3% cashback, 1.5x points on 12000 cents
			cashback := ledgerEntries(ledgerdm.TypeCashback)
			Expect(cashback).To(HaveLen(1))
			Expect(cashback[0].Amount).To(Equal(int64(360)))

			points := ledgerEntries(ledgerdm.TypePoints)
			Expect(points).To(HaveLen(1))
			Expect(points[0].Amount).To(Equal(int64(18)))
		})

		It("rolls back when the referenced order does not exist", func() {
			missing := "ord-missing"
			pay := seedPayment(paymentdm.TypeOrder, 8000, "5008")
			pay.OrderID = &missing
			Expect(db.Save(pay).Error).To(Succeed())

			payload := signedPayload(pay, gatewaydm.InvoiceStatusPaid)
			_, err := deliver(payload)
			Expect(err).To(HaveOccurred())

			Expect(reloadPayment(pay.ID).Status).To(Equal(paymentdm.StatusPending))
			Expect(reloadLog(payload).Status).To(Equal(paymentdm.WebhookFailed))
		})
	})

	Describe("failure and expiry events", func() {
		It("marks the payment FAILED with the gateway reason", func() {
			pay := seedPayment(paymentdm.TypeBooking, 5000, "5002")

			payload := signedPayload(pay, gatewaydm.InvoiceStatusFailed)
			result, err := deliver(payload)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(paymentpkg.ResultProcessed))

			updated := reloadPayment(pay.ID)
			Expect(updated.Status).To(Equal(paymentdm.StatusFailed))
			Expect(updated.FailedAt).ToNot(BeNil())
			Expect(updated.ErrorMessage).ToNot(BeNil())
			Expect(*updated.ErrorMessage).To(Equal("insufficient funds"))
		})

		It("verifies expired events over the reference id and expires the payment", func() {
			pay := seedPayment(paymentdm.TypeBooking, 5000, "5003")

			payload := &gatewaydm.WebhookPayload{
				InvoiceID:     *pay.ProviderInvoiceID,
				InvoiceStatus: string(gatewaydm.InvoiceStatusExpired),
				ReferenceID:   pay.IdempotencyKey,
				PaymentMethod: "fawry",
			}
			payload.HashKey = verifier.Sign(payload)

			result, err := deliver(payload)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(paymentpkg.ResultProcessed))

			updated := reloadPayment(pay.ID)
			Expect(updated.Status).To(Equal(paymentdm.StatusExpired))
			Expect(updated.ExpiredAt).ToNot(BeNil())
		})

		It("rejects a paid event for a payment that already failed", func() {
			pay := seedPayment(paymentdm.TypeBooking, 5000, "5004")
			_, err := deliver(signedPayload(pay, gatewaydm.InvoiceStatusFailed))
			Expect(err).ToNot(HaveOccurred())

			_, err = deliver(signedPayload(pay, gatewaydm.InvoiceStatusPaid))
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidTransition))
			Expect(reloadPayment(pay.ID).Status).To(Equal(paymentdm.StatusFailed))
		})
	})

	Describe("unknown invoices", func() {
		It("returns payment not found and leaves the log FAILED for reconciliation", func() {
			payload := &gatewaydm.WebhookPayload{
				InvoiceID:     "9999",
				InvoiceKey:    "key-9999",
				InvoiceStatus: string(gatewaydm.InvoiceStatusPaid),
				PaymentMethod: "card",
			}
			payload.HashKey = verifier.Sign(payload)

			_, err := deliver(payload)
			Expect(err).To(MatchError(internal.ErrPaymentNotFound))
			Expect(reloadLog(payload).Status).To(Equal(paymentdm.WebhookFailed))
		})
	})

	Describe("wallet deposits", func() {
		It("credits the wallet ledger exactly once", func() {
			pay := seedPayment(paymentdm.TypeWalletDeposit, 20000, "5005")

			payload := signedPayload(pay, gatewaydm.InvoiceStatusPaid)
			_, err := deliver(payload)
			Expect(err).ToNot(HaveOccurred())
			_, err = deliver(payload)
			Expect(err).ToNot(HaveOccurred())

			wallet := ledgerEntries(ledgerdm.TypeWallet)
			Expect(wallet).To(HaveLen(1))
			Expect(wallet[0].Amount).To(Equal(int64(20000)))
			Expect(wallet[0].BalanceAfter).To(Equal(int64(20000)))

			// deposits earn no cashback or points
			Expect(ledgerEntries(ledgerdm.TypeCashback)).To(BeEmpty())
			Expect(ledgerEntries(ledgerdm.TypePoints)).To(BeEmpty())
		})
	})

	Describe("membership purchases", func() {
		It("activates the subscription and grants the plan's initial points", func() {
			days := 30
			plan := &membershipdm.Plan{
				ID:               "plan-plat",
				TierCode:         "PLATINUM",
				TierName:         "Platinum",
				TierOrder:        3,
				PriceCents:       24900,
				Currency:         "USD",
				DurationDays:     &days,
				InitialPoints:    1500,
				CashbackRate:     5.0,
				PointsMultiplier: 2.0,
				IsActive:         true,
			}
			Expect(db.Create(plan).Error).To(Succeed())
			sub := &membershipdm.Subscription{
				ID:               "sub-2",
				UserID:           userID,
				PlanID:           plan.ID,
				MembershipNumber: "MEM-2026-0002",
				Status:           membershipdm.SubscriptionPendingPayment,
			}
			Expect(db.Create(sub).Error).To(Succeed())

			pay := seedPayment(paymentdm.TypeMembershipNew, 24900, "5006")
			pay.SubscriptionID = &sub.ID
			Expect(db.Save(pay).Error).To(Succeed())

			_, err := deliver(signedPayload(pay, gatewaydm.InvoiceStatusPaid))
			Expect(err).ToNot(HaveOccurred())

			var updated membershipdm.Subscription
			Expect(db.First(&updated, "id = ?", sub.ID).Error).To(Succeed())
			Expect(updated.Status).To(Equal(membershipdm.SubscriptionActive))
			Expect(updated.StartDate).ToNot(BeNil())
			Expect(updated.ExpiryDate).ToNot(BeNil())

			points := ledgerEntries(ledgerdm.TypePoints)
			Expect(points).To(HaveLen(1))
			Expect(points[0].Amount).To(Equal(int64(1500)))
		})
	})
})
