package auth

import (
	"fmt"
	"net/http"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/logger"
	"ms-boxoffice/internal/utils"

	"github.com/go-chi/chi/v5"
)

// OrderAccess admits either the purchaser holding the order token for the
// {id} route parameter or an authenticated staff user.
func OrderAccess(tokens *OrderTokens, staff Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := BearerToken(r)
			if err != nil {
				utils.WriteError(w, err)
				return
			}

			orderID := chi.URLParam(r, "id")
			if sub, err := tokens.Verify(rawToken); err == nil {
				if sub != orderID {
					log.LogSecurity("ORDER_TOKEN_MISMATCH", fmt.Sprintf("token for %s used on order %s", sub, orderID))
					utils.WriteError(w, apperr.New(apperr.Unauthorized, "token does not grant access to this order"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			userID, err := staff.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, apperr.Wrap(apperr.Unauthorized, "invalid token", err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
