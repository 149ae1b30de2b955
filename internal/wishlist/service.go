package wishlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gildedlane/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
	"github.com/gildedlane/marketplace-backend/pkg/logger"
	"github.com/gildedlane/marketplace-backend/pkg/pagination"
)

type productFinder interface {
	FindProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

// Service exposes the wishlist toggle and read surface.
type Service interface {
	Toggle(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WishlistItem, string, error)
}

// ServiceParams carries wishlist service dependencies.
type ServiceParams struct {
	Repo     *Repository
	Products productFinder
	Logg     *logger.Logger
}

type service struct {
	repo     *Repository
	products productFinder
	logg     *logger.Logger
}

// NewService builds a wishlist service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repository is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product finder is required")
	}
	if params.Logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{repo: params.Repo, products: params.Products, logg: params.Logg}, nil
}

// Toggle flips the wishlist state for one product and reports the resulting
// state: true when the product is now saved, false when it was removed.
// Delete-first keeps the flip atomic without a transaction, and the unique
// index collapses a concurrent double-insert into one row.
func (s *service) Toggle(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || productID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "user id and product id are required")
	}

	product, err := s.products.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product for wishlist toggle")
	}
	if !product.IsActive {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	deleted, err := s.repo.Delete(ctx, userID, productID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing wishlist entry")
	}
	if deleted {
		return false, nil
	}

	// The insert races with other toggles for the same pair; losing the
	// race still means the product ended up saved.
	if _, err := s.repo.Insert(ctx, userID, productID); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving wishlist entry")
	}
	return true, nil
}

func (s *service) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	exists, err := s.repo.Exists(ctx, userID, productID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking wishlist entry")
	}
	return exists, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WishlistItem, string, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pagination cursor")
	}
	items, next, err := s.repo.List(ctx, userID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing wishlist")
	}
	return items, next, nil
}
