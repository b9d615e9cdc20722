package payment_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/altayar/tourism-backend/internal"
	paymentpkg "github.com/altayar/tourism-backend/internal/payment"
)

var _ = Describe("Initiation request validation", func() {
	Describe("InitiateOrderPaymentRequest", func() {
		It("requires an order id", func() {
			req := paymentpkg.InitiateOrderPaymentRequest{}
			appErr := req.Validate()
			Expect(appErr).ToNot(BeNil())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("accepts a populated order id", func() {
			req := paymentpkg.InitiateOrderPaymentRequest{OrderID: "ord-1"}
			Expect(req.Validate()).To(BeNil())
		})
	})

	Describe("InitiateWalletDepositRequest", func() {
		It("rejects a zero amount", func() {
			req := paymentpkg.InitiateWalletDepositRequest{AmountCents: 0}
			Expect(req.Validate()).ToNot(BeNil())
		})

		It("rejects an amount above the deposit cap", func() {
			req := paymentpkg.InitiateWalletDepositRequest{AmountCents: 100_000_01}
			Expect(req.Validate()).ToNot(BeNil())
		})

		It("accepts an amount at the deposit cap", func() {
			req := paymentpkg.InitiateWalletDepositRequest{AmountCents: 100_000_00}
			Expect(req.Validate()).To(BeNil())
		})
	})
})
