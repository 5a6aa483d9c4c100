package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quickmed/quickmed-backend/pkg/auth"
	"github.com/quickmed/quickmed-backend/pkg/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type stubVerifier struct {
	principal auth.Principal
	err       error
}

func (s stubVerifier) Verify(string) (auth.Principal, error) {
	return s.principal, s.err
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(stubVerifier{}, nil)(okHandler())

	for _, header := range []string{"", "Bearer   "} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401 got %d", header, resp.Code)
		}
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(stubVerifier{err: errors.New("bad signature")}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "quickmed", ExpirationMinutes: 60}
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.Principal{UserID: 7, IsDeliveryPartner: true})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var captured auth.Principal
	handler := Auth(auth.NewVerifier(cfg), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			t.Fatal("expected principal in context")
		}
		captured = p
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.UserID != 7 || !captured.IsDeliveryPartner || captured.IsAdmin {
		t.Fatalf("unexpected principal %+v", captured)
	}
}

func TestRequireCapability(t *testing.T) {
	handler := RequireCapability(IsAdmin, "Admin access required", nil)(okHandler())

	tests := []struct {
		name      string
		principal *auth.Principal
		want      int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"customer", &auth.Principal{UserID: 1}, http.StatusForbidden},
		{"partner", &auth.Principal{UserID: 2, IsDeliveryPartner: true}, http.StatusForbidden},
		{"admin", &auth.Principal{UserID: 3, IsAdmin: true}, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.principal != nil {
			req = req.WithContext(WithPrincipal(req.Context(), *tt.principal))
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tt.want {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.want, resp.Code)
		}
	}

	if !CanManageOrders(auth.Principal{IsDeliveryPartner: true}) || CanManageOrders(auth.Principal{UserID: 1}) {
		t.Fatal("unexpected order management capability")
	}
}
