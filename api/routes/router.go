package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quickmed/quickmed-backend/api/controllers"
	cartcontrollers "github.com/quickmed/quickmed-backend/api/controllers/cart"
	deliverycontrollers "github.com/quickmed/quickmed-backend/api/controllers/delivery"
	medicinecontrollers "github.com/quickmed/quickmed-backend/api/controllers/medicines"
	ordercontrollers "github.com/quickmed/quickmed-backend/api/controllers/orders"
	prescriptioncontrollers "github.com/quickmed/quickmed-backend/api/controllers/prescriptions"
	"github.com/quickmed/quickmed-backend/api/middleware"
	"github.com/quickmed/quickmed-backend/internal/cart"
	medicine "github.com/quickmed/quickmed-backend/internal/medicines"
	"github.com/quickmed/quickmed-backend/internal/orders"
	prescription "github.com/quickmed/quickmed-backend/internal/prescriptions"
	"github.com/quickmed/quickmed-backend/internal/users"
	"github.com/quickmed/quickmed-backend/pkg/config"
	"github.com/quickmed/quickmed-backend/pkg/logger"
)

// Deps carries everything the router mounts. Nil stores disable rate
// limiting and idempotency replay; nil services answer 500.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Verifier middleware.PrincipalVerifier
	Registry *prometheus.Registry

	// Readiness checks keyed by dependency name.
	Health map[string]controllers.Pinger

	RateLimiter middleware.RateLimitStore
	Idempotency middleware.IdempotencyStore

	Medicines     medicine.Service
	Cart          cart.Service
	Orders        orders.Service
	Prescriptions prescription.Service
	Users         users.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.Health, logg))
	})

	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{Registry: d.Registry}))
	}

	placePolicy := middleware.NewRateLimitPolicy("order_place", cfg.Orders.PlaceRateWindow, cfg.Orders.PlaceRateLimit)
	adminOnly := middleware.RequireCapability(middleware.IsAdmin, "admin access required", logg)
	idempotent := middleware.Idempotency(d.Idempotency, cfg.Orders.IdempotencyKeysTTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/medicines", func(r chi.Router) {
			r.Get("/", medicinecontrollers.Search(d.Medicines, logg))
			r.Get("/search", medicinecontrollers.Search(d.Medicines, logg))
			r.Get("/{medicineId}", medicinecontrollers.Get(d.Medicines, logg))
			r.Get("/{medicineId}/alternatives", medicinecontrollers.Alternatives(d.Medicines, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(d.Verifier, logg))
				r.Use(adminOnly)
				r.Post("/", medicinecontrollers.Create(d.Medicines, logg))
				r.Put("/{medicineId}", medicinecontrollers.Update(d.Medicines, logg))
				r.Patch("/{medicineId}/stock", medicinecontrollers.SetStock(d.Medicines, logg))
				r.Delete("/{medicineId}", medicinecontrollers.Delete(d.Medicines, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(d.Verifier, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(d.Cart, logg))
				r.Delete("/", cartcontrollers.CartClear(d.Cart, logg))
				r.Post("/items", cartcontrollers.CartAddItem(d.Cart, logg))
				r.Put("/items/{itemId}", cartcontrollers.CartUpdateItem(d.Cart, logg))
				r.Delete("/items/{itemId}", cartcontrollers.CartRemoveItem(d.Cart, logg))
				r.Post("/validate-prescriptions", cartcontrollers.CartValidatePrescription(d.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(middleware.RateLimit(placePolicy, d.RateLimiter, logg), idempotent).
					Post("/", ordercontrollers.Place(d.Orders, logg))
				r.Get("/", ordercontrollers.List(d.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(d.Orders, logg))
				r.Get("/{orderId}/track", ordercontrollers.Track(d.Orders, logg))
				r.With(middleware.RequireCapability(middleware.CanManageOrders, "order management access required", logg)).
					Patch("/{orderId}/status", ordercontrollers.UpdateStatus(d.Orders, logg))
				r.With(middleware.RequireCapability(middleware.IsDeliveryPartner, "delivery partner access required", logg), idempotent).
					Post("/{orderId}/delivery-proof", ordercontrollers.DeliveryProof(d.Orders, logg))
			})

			r.Route("/prescriptions", func(r chi.Router) {
				r.Post("/", prescriptioncontrollers.Create(d.Prescriptions, logg))
				r.Get("/", prescriptioncontrollers.List(d.Prescriptions, logg))
				r.Get("/{prescriptionId}", prescriptioncontrollers.Get(d.Prescriptions, logg))
				r.With(adminOnly).Put("/{prescriptionId}/verify", prescriptioncontrollers.Verify(d.Prescriptions, logg))
				r.With(adminOnly).Post("/{prescriptionId}/medicines", prescriptioncontrollers.AddMedicine(d.Prescriptions, logg))
				r.Get("/{prescriptionId}/medicines", prescriptioncontrollers.ListMedicines(d.Prescriptions, logg))
			})

			r.Route("/delivery", func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/partners", deliverycontrollers.Partners(d.Users, logg))
				r.Post("/emergency", deliverycontrollers.Emergency(d.Orders, logg))
			})
		})
	})

	return r
}
