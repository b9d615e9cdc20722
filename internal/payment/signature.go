package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/altayar/tourism-backend/internal"
	gatewaydm "github.com/altayar/tourism-backend/internal/core/datamodel/paymentgateway"
)

// SignatureVerifier checks Fawaterk webhook signatures. The provider signs
// paid/failed callbacks and expired callbacks over different query strings;
// both use HMAC-SHA256 with the vendor key, hex encoded.
type SignatureVerifier struct {
	vendorKey string
}

func NewSignatureVerifier(vendorKey string) *SignatureVerifier {
	return &SignatureVerifier{vendorKey: vendorKey}
}

// canonicalString builds the exact string the provider signed. Paid and
// failed events use InvoiceId/InvoiceKey/PaymentMethod; expired events carry
// no invoice key and are signed over referenceId/PaymentMethod instead.
func canonicalString(payload *gatewaydm.WebhookPayload) string {
	if gatewaydm.InvoiceStatus(payload.InvoiceStatus) == gatewaydm.InvoiceStatusExpired {
		return fmt.Sprintf("referenceId=%s&PaymentMethod=%s",
			payload.ReferenceID, payload.PaymentMethod)
	}
	return fmt.Sprintf("InvoiceId=%s&InvoiceKey=%s&PaymentMethod=%s",
		payload.InvoiceID, payload.InvoiceKey, payload.PaymentMethod)
}

// Sign computes the expected hex signature for a payload. The sandbox gateway
// uses it to produce deliverable callbacks; Verify uses it for comparison.
func (v *SignatureVerifier) Sign(payload *gatewaydm.WebhookPayload) string {
	mac := hmac.New(sha256.New, []byte(v.vendorKey))
	mac.Write([]byte(canonicalString(payload)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares the received hashKey in constant time. Any mismatch is
// ErrInvalidSignature; callers must not mutate anything before this passes.
func (v *SignatureVerifier) Verify(payload *gatewaydm.WebhookPayload) error {
	expected := v.Sign(payload)
	if !hmac.Equal([]byte(expected), []byte(payload.HashKey)) {
		return internal.ErrInvalidSignature
	}
	return nil
}
