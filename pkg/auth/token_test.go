package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quickmed/quickmed-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "quickmed", ExpirationMinutes: 30}
}

func TestMintAndVerifyAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().UTC(), Principal{UserID: 9, IsDeliveryPartner: true})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	principal, err := NewVerifier(cfg).Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if principal.UserID != 9 || !principal.IsDeliveryPartner || principal.IsAdmin {
		t.Fatalf("unexpected principal %+v", principal)
	}
	if !principal.CanManageOrders() {
		t.Fatal("delivery partner should manage orders")
	}
	if principal.Role() != "delivery_partner" {
		t.Fatalf("unexpected role %q", principal.Role())
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), Principal{UserID: 1})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseAccessTokenRejectsWrongIssuerAndSecret(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), Principal{UserID: 1, IsAdmin: true})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch")
	}

	other = cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected signature mismatch")
	}
}

func TestParseAccessTokenRequiresUser(t *testing.T) {
	cfg := testJWTConfig()
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected missing user to fail")
	}
	if _, err := MintAccessToken(cfg, time.Now(), Principal{}); err == nil {
		t.Fatal("expected mint without user to fail")
	}
}

func TestPrincipalRoles(t *testing.T) {
	if (Principal{UserID: 1}).CanManageOrders() {
		t.Fatal("customer must not manage orders")
	}
	if (Principal{UserID: 1, IsAdmin: true}).Role() != "admin" {
		t.Fatal("expected admin role")
	}
}
