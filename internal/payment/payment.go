package payment

import (
	"context"

	"github.com/altayar/tourism-backend/internal/booking"
	paymentdm "github.com/altayar/tourism-backend/internal/core/datamodel/payment"
	gatewaydm "github.com/altayar/tourism-backend/internal/core/datamodel/paymentgateway"
	"github.com/altayar/tourism-backend/internal/ledger"
	"github.com/altayar/tourism-backend/internal/membership"
	"github.com/altayar/tourism-backend/internal/order"
)

// PaymentRepository interface for payment database operations
type PaymentRepository interface {
	Create(ctx context.Context, p *paymentdm.Payment) error
	GetByID(ctx context.Context, id string) (*paymentdm.Payment, error)
	GetByProviderInvoiceID(ctx context.Context, invoiceID string) (*paymentdm.Payment, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]paymentdm.Payment, error)
	Update(ctx context.Context, p *paymentdm.Payment) error

	// NextSequence hands out the counter behind PAY-YYYY-NNNNNN numbers.
	NextSequence(ctx context.Context) (int64, error)
}

// Admission is the outcome of trying to claim a webhook delivery for
// processing. Only AdmissionAccepted lets the caller proceed to mutate state.
type Admission int

const (
	// AdmissionAccepted: this delivery holds the PROCESSING claim.
	AdmissionAccepted Admission = iota
	// AdmissionAlreadyProcessed: a previous delivery completed; ack and stop.
	AdmissionAlreadyProcessed
	// AdmissionInFlight: another delivery holds the claim right now.
	AdmissionInFlight
)

// WebhookLogRepository is the idempotency guard. Admit relies on the unique
// index on webhook_event_id, not on application-level reads.
type WebhookLogRepository interface {
	// Admit inserts the log with status PROCESSING, or resolves the existing
	// row for the same event id: PROCESSED collapses to AlreadyProcessed,
	// PROCESSING to InFlight, FAILED/RECEIVED rows are retaken. The returned
	// log is the row that now holds the claim (or the completed one).
	Admit(ctx context.Context, log *paymentdm.WebhookLog) (Admission, *paymentdm.WebhookLog, error)

	MarkProcessed(ctx context.Context, logID string, paymentID *string) error
	MarkFailed(ctx context.Context, logID string, errMsg string) error
	MarkDuplicate(ctx context.Context, logID string, paymentID *string) error

	GetByEventID(ctx context.Context, eventID string) (*paymentdm.WebhookLog, error)
}

// TxRepos bundles the repositories bound to one open transaction. Everything
// the webhook processor and the dispatcher touch goes through these so status
// writes, confirmations, reward entries and the log completion commit or roll
// back together.
type TxRepos struct {
	Payments    PaymentRepository
	WebhookLogs WebhookLogRepository
	Bookings    booking.Repository
	Orders      order.Repository
	Memberships membership.Repository
	Ledger      ledger.Repository
}

// UnitOfWork opens a transaction and hands the callback transaction-scoped
// repositories. An error return rolls everything back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx TxRepos) error) error
}

// GatewayClient is what the payment service needs from the provider.
type GatewayClient interface {
	CreateInvoice(ctx context.Context, req *gatewaydm.InvoiceRequest) (*gatewaydm.Invoice, error)
	CheckStatus(ctx context.Context, invoiceID string) (gatewaydm.InvoiceStatus, error)
}
