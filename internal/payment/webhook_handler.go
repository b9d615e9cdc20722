package payment

import (
	"encoding/json"
	"io"
	"net/http"

	gatewaydm "github.com/altayar/tourism-backend/internal/core/datamodel/paymentgateway"
	"github.com/altayar/tourism-backend/internal/transport"
)

// maxWebhookBody caps gateway callback bodies; Fawaterk payloads are small.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	*transport.BaseHandler
	processor *WebhookProcessor
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, processor *WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		processor:   processor,
	}
}

// HandleFawaterkWebhook is the gateway callback endpoint. It always responds
// 2xx for deliveries we have fully handled before (duplicates), so the
// provider stops redelivering; genuine failures return non-2xx so it tries
// again.
func (h *WebhookHandler) HandleFawaterkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	var payload gatewaydm.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.Logger.Error("invalid webhook payload", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.InvoiceID == "" {
		h.WriteError(w, http.StatusBadRequest, "invoice_id is required")
		return
	}

	h.Logger.Info("received gateway webhook",
		"invoice_id", payload.InvoiceID,
		"invoice_status", payload.InvoiceStatus,
		"reference_id", payload.ReferenceID)

	result, err := h.processor.Process(r.Context(), &payload, body)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	switch result.Status {
	case ResultInFlight:
		// Another delivery holds the claim; tell the gateway to come back.
		h.WriteJSON(w, http.StatusAccepted, WebhookResponse{Status: ResultAlreadyProcessed})
	default:
		h.WriteJSON(w, http.StatusOK, WebhookResponse{Status: result.Status})
	}
}
