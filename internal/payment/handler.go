package payment

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/altayar/tourism-backend/internal"
	"github.com/altayar/tourism-backend/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	service *Service
}

func NewHandler(baseHandler *transport.BaseHandler, service *Service) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		service:     service,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/payments/bookings", h.InitiateBookingPayment)
	r.Post("/payments/orders", h.InitiateOrderPayment)
	r.Post("/payments/memberships", h.InitiateMembershipPayment)
	r.Post("/payments/wallet/deposit", h.InitiateWalletDeposit)
	r.Get("/payments", h.ListPayments)
	r.Get("/payments/{id}", h.GetPayment)
}

func (h *Handler) InitiateBookingPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req InitiateBookingPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if appErr := req.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	res, err := h.service.InitiateBookingPayment(r.Context(), userID, req.BookingID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, toInitiationResponse(res))
}

func (h *Handler) InitiateOrderPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req InitiateOrderPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if appErr := req.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	res, err := h.service.InitiateOrderPayment(r.Context(), userID, req.OrderID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, toInitiationResponse(res))
}

func (h *Handler) InitiateMembershipPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req InitiateMembershipPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if appErr := req.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	res, err := h.service.InitiateMembershipPayment(r.Context(), userID, req.PlanID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, toInitiationResponse(res))
}

func (h *Handler) InitiateWalletDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req InitiateWalletDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if appErr := req.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	res, err := h.service.InitiateWalletDeposit(r.Context(), userID, req.AmountCents)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, toInitiationResponse(res))
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	pay, err := h.service.GetPayment(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, toPaymentResponse(pay))
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	payments, err := h.service.ListUserPayments(r.Context(), userID, limit, offset)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	resp := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		resp = append(resp, toPaymentResponse(&payments[i]))
	}
	h.WriteJSON(w, http.StatusOK, resp)
}
