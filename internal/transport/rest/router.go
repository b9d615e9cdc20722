package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"

	"github.com/altayar/tourism-backend/internal/ledger"
	"github.com/altayar/tourism-backend/internal/payment"
	"github.com/altayar/tourism-backend/internal/transport/middleware"
)

// RegisterAllRoutes wires every HTTP surface: health probes, the gateway
// webhook (no user context, verified by signature instead) and the
// user-scoped payment and ledger APIs.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, paymentHandler *payment.Handler, webhookHandler *payment.WebhookHandler, ledgerHandler *ledger.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Provider callback: authenticated by its HMAC signature, not by a
		// user session, so it stays outside the user-context group.
		if webhookHandler != nil {
			r.Post("/payments/webhook/fawaterk", webhookHandler.HandleFawaterkWebhook)
		}

		r.Group(func(ur chi.Router) {
			ur.Use(middleware.UserContext)

			if paymentHandler != nil {
				paymentHandler.RegisterRoutes(ur)
			}
			if ledgerHandler != nil {
				ledgerHandler.RegisterRoutes(ur)
			}
		})
	})
}
