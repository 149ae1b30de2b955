package wishlist

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gildedlane/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
	"github.com/gildedlane/marketplace-backend/pkg/logger"
	"github.com/gildedlane/marketplace-backend/pkg/pagination"
)

func setupWishlistTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sku TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  materials TEXT,
  variants TEXT,
  sizes TEXT,
  price_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  stock_qty INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  rating_avg REAL NOT NULL DEFAULT 0,
  rating_count INTEGER NOT NULL DEFAULT 0,
  ratings_breakdown TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS wishlist_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (user_id, product_id)
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type wishlistProductFinder struct {
	db *gorm.DB
}

func (f *wishlistProductFinder) FindProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := f.db.WithContext(ctx).Where("id = ?", productID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func newWishlistService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Products: &wishlistProductFinder{db: db},
		Logg:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

func seedWishlistProduct(t *testing.T, db *gorm.DB, active bool) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:         uuid.New(),
		VendorID:   uuid.New(),
		Name:       "Tidal Cuff",
		SKU:        "SKU-" + uuid.NewString()[:8],
		Category:   "bracelets",
		PriceCents: 9000,
		Currency:   "USD",
		StockQty:   4,
		IsActive:   active,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestToggleFlipsState(t *testing.T) {
	db := setupWishlistTestDB(t)
	svc := newWishlistService(t, db)
	product := seedWishlistProduct(t, db, true)
	userID := uuid.New()

	saved, err := svc.Toggle(context.Background(), userID, product.ID)
	require.NoError(t, err)
	assert.True(t, saved)

	exists, err := svc.Contains(context.Background(), userID, product.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	saved, err = svc.Toggle(context.Background(), userID, product.ID)
	require.NoError(t, err)
	assert.False(t, saved)

	exists, err = svc.Contains(context.Background(), userID, product.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	// At most one row ever exists for the pair.
	saved, err = svc.Toggle(context.Background(), userID, product.ID)
	require.NoError(t, err)
	assert.True(t, saved)
	var count int64
	require.NoError(t, db.Model(&models.WishlistItem{}).
		Where("user_id = ? AND product_id = ?", userID, product.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestToggleDuplicateInsertConverges(t *testing.T) {
	db := setupWishlistTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	productID := uuid.New()

	inserted, err := repo.Insert(context.Background(), userID, productID)
	require.NoError(t, err)
	assert.True(t, inserted)

	// A second insert for the same pair is swallowed by the conflict clause.
	inserted, err = repo.Insert(context.Background(), userID, productID)
	require.NoError(t, err)
	assert.False(t, inserted)

	var count int64
	require.NoError(t, db.Model(&models.WishlistItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestToggleRejectsUnknownOrInactiveProduct(t *testing.T) {
	db := setupWishlistTestDB(t)
	svc := newWishlistService(t, db)
	inactive := seedWishlistProduct(t, db, false)
	userID := uuid.New()

	_, err := svc.Toggle(context.Background(), userID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.Toggle(context.Background(), userID, inactive.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListReturnsOnlyOwnItems(t *testing.T) {
	db := setupWishlistTestDB(t)
	svc := newWishlistService(t, db)
	first := seedWishlistProduct(t, db, true)
	second := seedWishlistProduct(t, db, true)
	userID := uuid.New()
	otherID := uuid.New()

	_, err := svc.Toggle(context.Background(), userID, first.ID)
	require.NoError(t, err)
	_, err = svc.Toggle(context.Background(), userID, second.ID)
	require.NoError(t, err)
	_, err = svc.Toggle(context.Background(), otherID, first.ID)
	require.NoError(t, err)

	items, _, err := svc.List(context.Background(), userID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, userID, item.UserID)
	}
}
