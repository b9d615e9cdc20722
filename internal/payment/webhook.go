package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/altayar/tourism-backend/internal"
	paymentdm "github.com/altayar/tourism-backend/internal/core/datamodel/payment"
	gatewaydm "github.com/altayar/tourism-backend/internal/core/datamodel/paymentgateway"
	"github.com/altayar/tourism-backend/internal/core/events"
)

// WebhookResult statuses the HTTP layer translates into responses.
const (
	ResultProcessed        = "success"
	ResultAlreadyProcessed = "already_processed"
	ResultInFlight         = "processing"
)

type WebhookResult struct {
	Status        string
	PaymentID     string
	PaymentStatus paymentdm.Status
}

// WebhookProcessor owns one webhook delivery end to end: admission through
// the log's unique event id, signature verification, the status transition,
// post-payment actions and log completion. Everything that mutates payment
// state runs inside a single transaction; admission and failure marking run
// outside it so a rolled-back delivery leaves a FAILED row behind for the
// gateway's retry to retake.
type WebhookProcessor struct {
	uow         UnitOfWork
	webhookLogs WebhookLogRepository
	verifier    *SignatureVerifier
	dispatcher  *Dispatcher
	eventBus    *events.EventBus
	logger      *slog.Logger
}

func NewWebhookProcessor(uow UnitOfWork, webhookLogs WebhookLogRepository, verifier *SignatureVerifier, dispatcher *Dispatcher, eventBus *events.EventBus, logger *slog.Logger) *WebhookProcessor {
	return &WebhookProcessor{
		uow:         uow,
		webhookLogs: webhookLogs,
		verifier:    verifier,
		dispatcher:  dispatcher,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// statusForEvent maps the provider's invoice status to the payment status it
// drives. Unknown statuses are rejected before admission.
func statusForEvent(invoiceStatus string) (paymentdm.Status, error) {
	switch gatewaydm.InvoiceStatus(invoiceStatus) {
	case gatewaydm.InvoiceStatusPaid:
		return paymentdm.StatusPaid, nil
	case gatewaydm.InvoiceStatusFailed:
		return paymentdm.StatusFailed, nil
	case gatewaydm.InvoiceStatusExpired:
		return paymentdm.StatusExpired, nil
	case gatewaydm.InvoiceStatusCancelled:
		return paymentdm.StatusCancelled, nil
	default:
		return "", internal.NewValidationError(
			fmt.Sprintf("unknown invoice status: %s", invoiceStatus),
			internal.ErrCodeValidationFailed)
	}
}

// eventID collapses redeliveries of the same provider event onto one log
// row. Expired events carry no invoice key, so the reference id stands in.
func eventID(payload *gatewaydm.WebhookPayload) string {
	key := payload.InvoiceKey
	if key == "" {
		key = payload.ReferenceID
	}
	return fmt.Sprintf("%s:%s:%s", payload.InvoiceID, key, payload.InvoiceStatus)
}

func (p *WebhookProcessor) Process(ctx context.Context, payload *gatewaydm.WebhookPayload, rawBody json.RawMessage) (*WebhookResult, error) {
	targetStatus, err := statusForEvent(payload.InvoiceStatus)
	if err != nil {
		return nil, err
	}

	logRow := &paymentdm.WebhookLog{
		EventID:      eventID(payload),
		EventType:    payload.InvoiceStatus,
		InvoiceID:    payload.InvoiceID,
		InvoiceKey:   payload.InvoiceKey,
		ReferenceID:  payload.ReferenceID,
		RawPayload:   rawBody,
		HashReceived: payload.HashKey,
		Status:       paymentdm.WebhookProcessing,
	}

	admission, logRow, err := p.webhookLogs.Admit(ctx, logRow)
	if err != nil {
		return nil, fmt.Errorf("admit webhook: %w", err)
	}

	switch admission {
	case AdmissionAlreadyProcessed:
		p.logger.Info("webhook already processed",
			"event_id", logRow.EventID,
			"delivery_count", logRow.DeliveryCount)
		return &WebhookResult{Status: ResultAlreadyProcessed}, nil
	case AdmissionInFlight:
		p.logger.Info("webhook already in flight", "event_id", logRow.EventID)
		return &WebhookResult{Status: ResultInFlight}, nil
	}

	// Verification happens after admission so forged floods still collapse
	// onto one log row, but before any payment mutation.
	if err := p.verifier.Verify(payload); err != nil {
		p.logger.Warn("webhook signature mismatch",
			"event_id", logRow.EventID,
			"invoice_id", payload.InvoiceID)
		p.markFailed(ctx, logRow.ID, "invalid hash signature")
		return nil, err
	}

	var (
		pay       *paymentdm.Payment
		duplicate bool
	)
	txErr := p.uow.Do(ctx, func(tx TxRepos) error {
		var err error
		pay, err = tx.Payments.GetByProviderInvoiceID(ctx, payload.InvoiceID)
		if err != nil {
			return err
		}

		if pay.Status == targetStatus {
			// A distinct provider event re-reporting a state we already
			// hold. Record it, change nothing.
			duplicate = true
			return tx.WebhookLogs.MarkDuplicate(ctx, logRow.ID, &pay.ID)
		}

		if !paymentdm.CanTransition(pay.Status, targetStatus) {
			return internal.ErrInvalidTransition.WithDetails(map[string]string{
				"from": string(pay.Status),
				"to":   string(targetStatus),
			})
		}

		applyTransition(pay, targetStatus, payload, rawBody, logRow.EventID)
		if err := tx.Payments.Update(ctx, pay); err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}

		if targetStatus == paymentdm.StatusPaid {
			if err := p.dispatcher.Dispatch(ctx, tx, pay); err != nil {
				return fmt.Errorf("post-payment action: %w", err)
			}
		}

		return tx.WebhookLogs.MarkProcessed(ctx, logRow.ID, &pay.ID)
	})
	if txErr != nil {
		p.logger.Error("webhook processing failed",
			"event_id", logRow.EventID,
			"invoice_id", payload.InvoiceID,
			"error", txErr)
		p.markFailed(ctx, logRow.ID, txErr.Error())
		return nil, txErr
	}

	if duplicate {
		return &WebhookResult{
			Status:        ResultAlreadyProcessed,
			PaymentID:     pay.ID,
			PaymentStatus: pay.Status,
		}, nil
	}

	p.publishOutcome(ctx, pay, payload)

	p.logger.Info("webhook processed",
		"event_id", logRow.EventID,
		"payment_id", pay.ID,
		"status", pay.Status)

	return &WebhookResult{
		Status:        ResultProcessed,
		PaymentID:     pay.ID,
		PaymentStatus: pay.Status,
	}, nil
}

// applyTransition stamps the payment for its new status. The raw webhook
// body and event id stay on the payment for audit.
func applyTransition(pay *paymentdm.Payment, target paymentdm.Status, payload *gatewaydm.WebhookPayload, rawBody json.RawMessage, evID string) {
	now := time.Now().UTC()
	pay.Status = target
	pay.WebhookPayload = rawBody
	pay.WebhookEventID = &evID
	pay.UpdatedAt = now

	if payload.PaymentMethod != "" {
		method := payload.PaymentMethod
		pay.PaymentMethod = &method
	}

	switch target {
	case paymentdm.StatusPaid:
		pay.PaidAt = &now
	case paymentdm.StatusFailed, paymentdm.StatusCancelled:
		pay.FailedAt = &now
		if payload.FailureReason != "" {
			reason := payload.FailureReason
			pay.ErrorMessage = &reason
		}
	case paymentdm.StatusExpired:
		pay.ExpiredAt = &now
	}
}

// markFailed releases the PROCESSING claim so the gateway's redelivery can
// retake the event. Best effort; a failure here only delays the retry.
func (p *WebhookProcessor) markFailed(ctx context.Context, logID, reason string) {
	if err := p.webhookLogs.MarkFailed(ctx, logID, reason); err != nil {
		p.logger.Error("failed to mark webhook log FAILED",
			"log_id", logID,
			"error", err)
	}
}

func (p *WebhookProcessor) publishOutcome(ctx context.Context, pay *paymentdm.Payment, payload *gatewaydm.WebhookPayload) {
	if p.eventBus == nil {
		return
	}

	switch pay.Status {
	case paymentdm.StatusPaid:
		method := ""
		if pay.PaymentMethod != nil {
			method = *pay.PaymentMethod
		}
		event := events.NewPaymentCompletedEvent(
			pay.ID, pay.UserID, string(pay.PaymentType),
			payload.InvoiceID, pay.AmountCents, pay.Currency, method)
		if err := p.eventBus.Publish(ctx, event); err != nil {
			p.logger.Error("failed to publish payment completed event", "error", err)
		}
	case paymentdm.StatusFailed, paymentdm.StatusExpired, paymentdm.StatusCancelled:
		event := events.NewPaymentFailedEvent(
			pay.ID, pay.UserID, payload.InvoiceID,
			pay.AmountCents, payload.FailureReason)
		if err := p.eventBus.Publish(ctx, event); err != nil {
			p.logger.Error("failed to publish payment failed event", "error", err)
		}
	}
}
