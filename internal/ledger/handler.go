package ledger

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/altayar/tourism-backend/internal"
	ledgerdm "github.com/altayar/tourism-backend/internal/core/datamodel/ledger"
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
	r.Get("/ledger/{type}/balance", h.GetBalance)
	r.Get("/ledger/{type}/entries", h.ListEntries)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	ledgerType := ledgerdm.Type(chi.URLParam(r, "type"))
	balance, err := h.service.CurrentBalance(r.Context(), userID, ledgerType)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, BalanceResponse{
		LedgerType:   string(ledgerType),
		BalanceCents: balance,
	})
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	ledgerType := ledgerdm.Type(chi.URLParam(r, "type"))
	cursor, _ := strconv.ParseInt(r.URL.Query().Get("cursor"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, nextCursor, err := h.service.ListEntries(r.Context(), userID, ledgerType, cursor, limit)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	resp := EntriesResponse{
		LedgerType: string(ledgerType),
		Entries:    make([]EntryResponse, 0, len(entries)),
		NextCursor: nextCursor,
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toEntryResponse(e))
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
