package cart

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
)

// OwnerKey identifies the single owner of a cart: an authenticated user or a
// guest session, never both. The zero value is invalid.
type OwnerKey struct {
	userID       uuid.UUID
	sessionToken string
}

// UserOwner keys a cart by authenticated user id.
func UserOwner(userID uuid.UUID) OwnerKey {
	return OwnerKey{userID: userID}
}

// GuestOwner keys a cart by anonymous session token.
func GuestOwner(sessionToken string) OwnerKey {
	return OwnerKey{sessionToken: strings.TrimSpace(sessionToken)}
}

// IsUser reports whether the key belongs to an authenticated user.
func (o OwnerKey) IsUser() bool {
	return o.userID != uuid.Nil
}

// UserID returns the user id half of the key, or uuid.Nil for guests.
func (o OwnerKey) UserID() uuid.UUID {
	return o.userID
}

// SessionToken returns the guest token half of the key, or "" for users.
func (o OwnerKey) SessionToken() string {
	return o.sessionToken
}

// Validate rejects empty and double-keyed owners.
func (o OwnerKey) Validate() error {
	if o.userID != uuid.Nil && o.sessionToken != "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner cannot be both user and guest")
	}
	if o.userID == uuid.Nil && o.sessionToken == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	return nil
}

// scope narrows a query to the owner's cart.
func (o OwnerKey) scope(query *gorm.DB) *gorm.DB {
	if o.IsUser() {
		return query.Where("user_id = ?", o.userID)
	}
	return query.Where("session_token = ?", o.sessionToken)
}
