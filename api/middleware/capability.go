package middleware

import (
	"net/http"

	"github.com/quickmed/quickmed-backend/api/responses"
	"github.com/quickmed/quickmed-backend/pkg/auth"
	pkgerrors "github.com/quickmed/quickmed-backend/pkg/errors"
	"github.com/quickmed/quickmed-backend/pkg/logger"
)

// Capability is a predicate over the caller.
type Capability func(auth.Principal) bool

func IsAdmin(p auth.Principal) bool { return p.IsAdmin }

func IsDeliveryPartner(p auth.Principal) bool { return p.IsDeliveryPartner }

func CanManageOrders(p auth.Principal) bool { return p.CanManageOrders() }

// RequireCapability rejects callers that do not satisfy capability. It must
// run after Auth.
func RequireCapability(capability Capability, message string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if !capability(p) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, message))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
