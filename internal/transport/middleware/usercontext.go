package middleware

import (
	"net/http"

	"github.com/altayar/tourism-backend/internal"
)

// UserContext propagates the caller identity resolved by the API gateway.
// Authentication itself happens upstream; this layer only trusts the
// forwarded header on user-scoped routes and rejects requests without it.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":401,"message":"missing user identity"}`))
			return
		}

		ctx := internal.ContextWithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
