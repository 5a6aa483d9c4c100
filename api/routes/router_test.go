package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quickmed/quickmed-backend/api/controllers"
	medicine "github.com/quickmed/quickmed-backend/internal/medicines"
	"github.com/quickmed/quickmed-backend/pkg/auth"
	"github.com/quickmed/quickmed-backend/pkg/config"
	"github.com/quickmed/quickmed-backend/pkg/logger"
	"github.com/quickmed/quickmed-backend/pkg/metrics"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubMedicines struct {
	medicine.Service
	searched int
}

func (s *stubMedicines) Search(context.Context, medicine.SearchFilter) ([]medicine.MedicineDTO, error) {
	s.searched++
	return []medicine.MedicineDTO{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "quickmed", ExpirationMinutes: 30},
		Orders: config.OrdersConfig{
			PlaceRateLimit:     10,
			PlaceRateWindow:    time.Minute,
			IdempotencyKeysTTL: time.Hour,
		},
	}
}

func newTestRouter(t *testing.T, meds medicine.Service, health map[string]controllers.Pinger) http.Handler {
	t.Helper()
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	metrics.NewOrderMetrics(reg).IncPlaced()
	return NewRouter(Deps{
		Config:    cfg,
		Logger:    logger.Nop(),
		Verifier:  auth.NewVerifier(cfg.JWT),
		Registry:  reg,
		Health:    health,
		Medicines: meds,
	})
}

func bearer(t *testing.T, p auth.Principal) string {
	t.Helper()
	token, err := auth.MintAccessToken(testConfig().JWT, time.Now().UTC(), p)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func do(h http.Handler, method, target, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	h := newTestRouter(t, nil, map[string]controllers.Pinger{"db": stubPinger{}})
	if rec := do(h, http.MethodGet, "/health/live", ""); rec.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/health/ready", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", rec.Code)
	}

	down := newTestRouter(t, nil, map[string]controllers.Pinger{"redis": stubPinger{err: errors.New("refused")}})
	if rec := do(down, http.MethodGet, "/health/ready", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready with dependency down: expected 503 got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(newTestRouter(t, nil, nil), http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "orders_placed_total") {
		t.Fatalf("expected order metrics in scrape, got %s", rec.Body.String())
	}
}

func TestCatalogIsPublic(t *testing.T) {
	meds := &stubMedicines{}
	h := newTestRouter(t, meds, nil)

	for _, target := range []string{"/api/v1/medicines", "/api/v1/medicines/", "/api/v1/medicines/search?q=para"} {
		if rec := do(h, http.MethodGet, target, ""); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", target, rec.Code)
		}
	}
	if meds.searched != 3 {
		t.Fatalf("expected 3 searches, got %d", meds.searched)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestRouter(t, nil, nil)
	routes := []struct{ method, target string }{
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodPost, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/orders/1"},
		{http.MethodGet, "/api/v1/prescriptions"},
		{http.MethodPost, "/api/v1/medicines"},
		{http.MethodGet, "/api/v1/prescriptions/1/medicines"},
		{http.MethodGet, "/api/v1/delivery/partners"},
	}
	for _, rt := range routes {
		if rec := do(h, rt.method, rt.target, ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", rt.method, rt.target, rec.Code)
		}
	}
}

func TestCapabilityGates(t *testing.T) {
	h := newTestRouter(t, nil, nil)
	customer := bearer(t, auth.Principal{UserID: 5})
	partner := bearer(t, auth.Principal{UserID: 6, IsDeliveryPartner: true})
	admin := bearer(t, auth.Principal{UserID: 7, IsAdmin: true})

	tests := []struct {
		name   string
		method string
		target string
		authz  string
		want   int
	}{
		{"customer cannot add medicines", http.MethodPost, "/api/v1/medicines", customer, http.StatusForbidden},
		{"customer cannot change order status", http.MethodPatch, "/api/v1/orders/1/status", customer, http.StatusForbidden},
		{"customer cannot confirm delivery", http.MethodPost, "/api/v1/orders/1/delivery-proof", customer, http.StatusForbidden},
		{"admin cannot confirm delivery", http.MethodPost, "/api/v1/orders/1/delivery-proof", admin, http.StatusForbidden},
		{"partner cannot verify prescriptions", http.MethodPut, "/api/v1/prescriptions/1/verify", partner, http.StatusForbidden},
		{"customer cannot add prescription medicines", http.MethodPost, "/api/v1/prescriptions/1/medicines", customer, http.StatusForbidden},
		{"partner cannot list delivery partners", http.MethodGet, "/api/v1/delivery/partners", partner, http.StatusForbidden},
		{"customer cannot dispatch emergencies", http.MethodPost, "/api/v1/delivery/emergency", customer, http.StatusForbidden},
		// Past the gate the nil services answer 500.
		{"admin reaches medicine create", http.MethodPost, "/api/v1/medicines", admin, http.StatusInternalServerError},
		{"partner reaches status update", http.MethodPatch, "/api/v1/orders/1/status", partner, http.StatusInternalServerError},
		{"partner reaches delivery proof", http.MethodPost, "/api/v1/orders/1/delivery-proof", partner, http.StatusInternalServerError},
		{"admin reaches verify", http.MethodPut, "/api/v1/prescriptions/1/verify", admin, http.StatusInternalServerError},
		{"admin reaches prescription medicines", http.MethodPost, "/api/v1/prescriptions/1/medicines", admin, http.StatusInternalServerError},
		{"customer reaches prescription medicine list", http.MethodGet, "/api/v1/prescriptions/1/medicines", customer, http.StatusInternalServerError},
		{"admin reaches partner listing", http.MethodGet, "/api/v1/delivery/partners", admin, http.StatusInternalServerError},
		{"admin reaches emergency dispatch", http.MethodPost, "/api/v1/delivery/emergency", admin, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(h, tt.method, tt.target, tt.authz); rec.Code != tt.want {
				t.Fatalf("expected %d got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t, nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}
