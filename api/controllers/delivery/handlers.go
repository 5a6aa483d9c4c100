// Package delivery serves the pharmacy staff's dispatch endpoints. Every
// route here is mounted behind the admin check.
package delivery

import (
	"net/http"

	"github.com/quickmed/quickmed-backend/api/middleware"
	"github.com/quickmed/quickmed-backend/api/responses"
	"github.com/quickmed/quickmed-backend/api/validators"
	"github.com/quickmed/quickmed-backend/internal/orders"
	"github.com/quickmed/quickmed-backend/internal/users"
	pkgerrors "github.com/quickmed/quickmed-backend/pkg/errors"
	"github.com/quickmed/quickmed-backend/pkg/logger"
)

type emergencyRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
}

// Partners lists the delivery partners currently on duty.
func Partners(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}
		partners, err := svc.ListDeliveryPartners(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, partners)
	}
}

// Emergency rushes an order out with the first available partner.
func Emergency(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload emergencyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.DispatchEmergency(r.Context(), principal, payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
