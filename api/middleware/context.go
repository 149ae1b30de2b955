package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/gildedlane/marketplace-backend/pkg/auth"
	"github.com/gildedlane/marketplace-backend/pkg/enums"
)

type contextKey string

const ctxClaims contextKey = "auth_claims"

// WithClaims injects the authenticated claims into the context.
func WithClaims(ctx context.Context, claims *auth.AccessTokenClaims) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxClaims, claims)
}

// ClaimsFromContext returns the authenticated claims, or nil on anonymous
// requests.
func ClaimsFromContext(ctx context.Context) *auth.AccessTokenClaims {
	if ctx == nil {
		return nil
	}
	if claims, ok := ctx.Value(ctxClaims).(*auth.AccessTokenClaims); ok {
		return claims
	}
	return nil
}

// UserIDFromContext returns the authenticated user id, uuid.Nil when absent.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.UserID
	}
	return uuid.Nil
}

// RoleFromContext returns the authenticated role, empty when absent.
func RoleFromContext(ctx context.Context) enums.MemberRole {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.Role
	}
	return ""
}

// VendorIDFromContext returns the vendor scope of a vendor token.
func VendorIDFromContext(ctx context.Context) *uuid.UUID {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.VendorID
	}
	return nil
}
