package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gildedlane/marketplace-backend/api/middleware"
	"github.com/gildedlane/marketplace-backend/api/validators"
	"github.com/gildedlane/marketplace-backend/internal/cart"
	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
	"github.com/gildedlane/marketplace-backend/pkg/pagination"
)

const guestSessionHeader = "X-Guest-Session"

// cartOwner resolves the cart owner for a request: the authenticated user
// when a token is present, otherwise the guest session header.
func cartOwner(r *http.Request) (cart.OwnerKey, error) {
	if userID := middleware.UserIDFromContext(r.Context()); userID != uuid.Nil {
		return cart.UserOwner(userID), nil
	}
	token := strings.TrimSpace(r.Header.Get(guestSessionHeader))
	if token == "" {
		return cart.OwnerKey{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication or guest session required")
	}
	return cart.GuestOwner(token), nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	value, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").
			WithDetails(map[string]any{"param": name})
	}
	return value, nil
}

func paginationParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

type listEnvelope struct {
	Items      any    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}
