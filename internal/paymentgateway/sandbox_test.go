package paymentgateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	gatewaydm "github.com/altayar/tourism-backend/internal/core/datamodel/paymentgateway"
	"github.com/altayar/tourism-backend/internal/payment"
)

var _ = ginkgo.Describe("Sandbox", func() {
	const vendorKey = "sandbox-vendor-key"

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ginkgo.It("delivers every outcome at least twice with a valid signature", func() {
		var (
			mu       sync.Mutex
			received []gatewaydm.WebhookPayload
		)

		receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var payload gatewaydm.WebhookPayload
			gomega.Expect(json.NewDecoder(r.Body).Decode(&payload)).To(gomega.Succeed())
			mu.Lock()
			received = append(received, payload)
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		}))
		defer receiver.Close()

		sandbox := NewSandbox(SandboxConfig{
			WebhookURL:   receiver.URL,
			VendorKey:    vendorKey,
			SuccessRatio: 1.0,
			MaxWorkers:   2,
		}, logger)
		defer sandbox.Shutdown()

		invoice, err := sandbox.CreateInvoice(context.Background(), &gatewaydm.InvoiceRequest{
			IdempotencyKey: "idem-sandbox-1",
			AmountCents:    5000,
			Currency:       "USD",
			Description:    "sandbox deposit",
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(invoice.InvoiceID).ToNot(gomega.BeEmpty())
		gomega.Expect(invoice.InvoiceKey).ToNot(gomega.BeEmpty())

		gomega.Eventually(func() int {
			mu.Lock()
			defer mu.Unlock()
			return len(received)
		}, 15*time.Second, 100*time.Millisecond).Should(gomega.BeNumerically(">=", 2))

		verifier := payment.NewSignatureVerifier(vendorKey)
		mu.Lock()
		defer mu.Unlock()
		for _, payload := range received {
			gomega.Expect(payload.InvoiceID).To(gomega.Equal(invoice.InvoiceID))
			gomega.Expect(payload.InvoiceStatus).To(gomega.Equal(string(gatewaydm.InvoiceStatusPaid)))
			gomega.Expect(verifier.Verify(&payload)).To(gomega.Succeed())
		}
	})

	ginkgo.It("rejects invoices once the queue is full", func() {
		sandbox := &Sandbox{
			webhookURL:   "http://unused.invalid",
			signer:       payment.NewSignatureVerifier(vendorKey),
			successRatio: 1.0,
			logger:       logger,
			jobQueue:     make(chan InvoiceJob, 1),
		}

		req := &gatewaydm.InvoiceRequest{
			IdempotencyKey: "idem-1",
			AmountCents:    100,
			Currency:       "USD",
		}

		_, err := sandbox.CreateInvoice(context.Background(), req)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		_, err = sandbox.CreateInvoice(context.Background(), req)
		gomega.Expect(err).To(gomega.HaveOccurred())
		gomega.Expect(err.Error()).To(gomega.ContainSubstring("queue full"))
	})
})
