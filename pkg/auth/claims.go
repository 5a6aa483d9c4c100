package auth

import "github.com/golang-jwt/jwt/v5"

// Principal is the authenticated caller as asserted by the identity provider.
type Principal struct {
	UserID            int64
	IsAdmin           bool
	IsDeliveryPartner bool
}

// CanManageOrders reports whether the caller may change order status.
func (p Principal) CanManageOrders() bool {
	return p.IsAdmin || p.IsDeliveryPartner
}

// Role is a coarse label for logs and metrics.
func (p Principal) Role() string {
	switch {
	case p.IsAdmin:
		return "admin"
	case p.IsDeliveryPartner:
		return "delivery_partner"
	default:
		return "customer"
	}
}

// AccessTokenClaims is the JWT body issued by the identity provider.
type AccessTokenClaims struct {
	UserID            int64 `json:"user_id"`
	IsAdmin           bool  `json:"is_admin,omitempty"`
	IsDeliveryPartner bool  `json:"is_delivery_partner,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the caller identity.
func (c AccessTokenClaims) Principal() Principal {
	return Principal{
		UserID:            c.UserID,
		IsAdmin:           c.IsAdmin,
		IsDeliveryPartner: c.IsDeliveryPartner,
	}
}
