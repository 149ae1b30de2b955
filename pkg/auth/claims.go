package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gildedlane/marketplace-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	VendorID *uuid.UUID
	Role     enums.MemberRole
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients. VendorID is
// only present for vendor accounts and scopes fulfillment operations to the
// vendor's own items.
type AccessTokenClaims struct {
	UserID   uuid.UUID        `json:"user_id"`
	VendorID *uuid.UUID       `json:"vendor_id,omitempty"`
	Role     enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}

// ActorType maps the authenticated role onto the actor taxonomy recorded in
// order status history.
func (c *AccessTokenClaims) ActorType() enums.ActorType {
	return c.Role.ActorType()
}
