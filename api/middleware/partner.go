package middleware

import (
	"net/http"

	"github.com/refermate/partner-portal-backend/api/responses"
	pkgerrors "github.com/refermate/partner-portal-backend/pkg/errors"
	"github.com/refermate/partner-portal-backend/pkg/logger"
)

func PartnerContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PartnerIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "partner context missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
