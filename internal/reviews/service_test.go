package reviews

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
	"github.com/gildedlane/marketplace-backend/pkg/enums"
	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
	"github.com/gildedlane/marketplace-backend/pkg/logger"
	"github.com/gildedlane/marketplace-backend/pkg/outbox"
)

func setupReviewsTestDB(t *testing.T) *gorm.DB {
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
CREATE TABLE IF NOT EXISTS reviews (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  order_id TEXT,
  rating INTEGER NOT NULL,
  title TEXT,
  body TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`, `
CREATE UNIQUE INDEX IF NOT EXISTS idx_reviews_product_user
  ON reviews (product_id, user_id) WHERE deleted_at IS NULL;`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type reviewsTxRunner struct {
	db *gorm.DB
}

func (t *reviewsTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.Transaction(fn)
}

type reviewsOutbox struct {
	events []outbox.DomainEvent
}

func (s *reviewsOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type reviewsProductFinder struct {
	db *gorm.DB
}

func (f *reviewsProductFinder) FindProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := f.db.WithContext(ctx).Where("id = ?", productID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func newReviewService(t *testing.T, db *gorm.DB) (Service, *Repository, *reviewsOutbox) {
	t.Helper()

	sink := &reviewsOutbox{}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Products: &reviewsProductFinder{db: db},
		Tx:       &reviewsTxRunner{db: db},
		Outbox:   sink,
		Logg:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc, NewRepository(db), sink
}

func seedRatedProduct(t *testing.T, db *gorm.DB) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:         uuid.New(),
		VendorID:   uuid.New(),
		Name:       "Comet Pendant",
		SKU:        "SKU-" + uuid.NewString()[:8],
		Category:   "pendants",
		PriceCents: 15000,
		Currency:   "USD",
		StockQty:   10,
		IsActive:   true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func productRatings(t *testing.T, db *gorm.DB, productID uuid.UUID) *models.Product {
	t.Helper()

	var product models.Product
	require.NoError(t, db.Where("id = ?", productID).First(&product).Error)
	return &product
}

func TestReviewLifecycleMaintainsAggregate(t *testing.T) {
	db := setupReviewsTestDB(t)
	svc, _, sink := newReviewService(t, db)
	product := seedRatedProduct(t, db)

	first, err := svc.Create(context.Background(), CreateReviewInput{
		ProductID: product.ID,
		UserID:    uuid.New(),
		Rating:    5,
		Title:     "Stunning",
	})
	require.NoError(t, err)

	state := productRatings(t, db, product.ID)
	assert.Equal(t, 5.0, state.RatingAvg)
	assert.Equal(t, 1, state.RatingCount)
	assert.Equal(t, 1, state.RatingsBreakdown["5"])

	second, err := svc.Create(context.Background(), CreateReviewInput{
		ProductID: product.ID,
		UserID:    uuid.New(),
		Rating:    3,
	})
	require.NoError(t, err)

	state = productRatings(t, db, product.ID)
	assert.Equal(t, 4.0, state.RatingAvg)
	assert.Equal(t, 2, state.RatingCount)

	require.NoError(t, svc.Delete(context.Background(), first.ID, first.UserID, false))
	state = productRatings(t, db, product.ID)
	assert.Equal(t, 3.0, state.RatingAvg)
	assert.Equal(t, 1, state.RatingCount)
	assert.Equal(t, 0, state.RatingsBreakdown["5"])

	require.NoError(t, svc.Delete(context.Background(), second.ID, second.UserID, false))
	state = productRatings(t, db, product.ID)
	assert.Equal(t, 0.0, state.RatingAvg)
	assert.Equal(t, 0, state.RatingCount)

	// Every aggregate write emitted a refresh event.
	assert.Len(t, sink.events, 4)
	for _, event := range sink.events {
		assert.Equal(t, enums.EventProductRatingsRefreshed, event.EventType)
		assert.Equal(t, enums.AggregateProduct, event.AggregateType)
	}
}

func TestCreateRejectsDuplicateReview(t *testing.T) {
	db := setupReviewsTestDB(t)
	svc, _, _ := newReviewService(t, db)
	product := seedRatedProduct(t, db)
	userID := uuid.New()

	_, err := svc.Create(context.Background(), CreateReviewInput{ProductID: product.ID, UserID: userID, Rating: 4})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateReviewInput{ProductID: product.ID, UserID: userID, Rating: 5})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	// The failed create must not have touched the aggregate.
	state := productRatings(t, db, product.ID)
	assert.Equal(t, 4.0, state.RatingAvg)
	assert.Equal(t, 1, state.RatingCount)
}

func TestCreateAfterDeleteFreesTheSlot(t *testing.T) {
	db := setupReviewsTestDB(t)
	svc, _, _ := newReviewService(t, db)
	product := seedRatedProduct(t, db)
	userID := uuid.New()

	first, err := svc.Create(context.Background(), CreateReviewInput{ProductID: product.ID, UserID: userID, Rating: 2})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), first.ID, userID, false))

	// The soft-deleted row stays behind for auditing but must not block a
	// fresh review from the same user.
	second, err := svc.Create(context.Background(), CreateReviewInput{ProductID: product.ID, UserID: userID, Rating: 5})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	state := productRatings(t, db, product.ID)
	assert.Equal(t, 5.0, state.RatingAvg)
	assert.Equal(t, 1, state.RatingCount)
	assert.Equal(t, 1, state.RatingsBreakdown["5"])
}

func TestCreateValidatesRatingRange(t *testing.T) {
	db := setupReviewsTestDB(t)
	svc, _, _ := newReviewService(t, db)
	product := seedRatedProduct(t, db)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.Create(context.Background(), CreateReviewInput{ProductID: product.ID, UserID: uuid.New(), Rating: rating})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	}
}

func TestUpdateReviewAdjustsAverageInPlace(t *testing.T) {
	db := setupReviewsTestDB(t)
	svc, _, _ := newReviewService(t, db)
	product := seedRatedProduct(t, db)
	userID := uuid.New()

	review, err := svc.Create(context.Background(), CreateReviewInput{ProductID: product.ID, UserID: userID, Rating: 4})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateReviewInput{ProductID: product.ID, UserID: uuid.New(), Rating: 2})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), UpdateReviewInput{ReviewID: review.ID, UserID: userID, Rating: 5, Title: "Even better"})
	require.NoError(t, err)

	state := productRatings(t, db, product.ID)
	assert.Equal(t, 3.5, state.RatingAvg)
	assert.Equal(t, 2, state.RatingCount)
	assert.Equal(t, 0, state.RatingsBreakdown["4"])
	assert.Equal(t, 1, state.RatingsBreakdown["5"])
}

func TestUpdateRejectsOtherUsersReview(t *testing.T) {
	db := setupReviewsTestDB(t)
	svc, _, _ := newReviewService(t, db)
	product := seedRatedProduct(t, db)

	review, err := svc.Create(context.Background(), CreateReviewInput{ProductID: product.ID, UserID: uuid.New(), Rating: 4})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), UpdateReviewInput{ReviewID: review.ID, UserID: uuid.New(), Rating: 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestSetStatusFlipsAggregateMembership(t *testing.T) {
	db := setupReviewsTestDB(t)
	svc, _, _ := newReviewService(t, db)
	product := seedRatedProduct(t, db)

	review, err := svc.Create(context.Background(), CreateReviewInput{ProductID: product.ID, UserID: uuid.New(), Rating: 5})
	require.NoError(t, err)

	// Rejecting an approved review counts it back out.
	_, err = svc.SetStatus(context.Background(), review.ID, enums.ReviewStatusRejected)
	require.NoError(t, err)
	state := productRatings(t, db, product.ID)
	assert.Equal(t, 0.0, state.RatingAvg)
	assert.Equal(t, 0, state.RatingCount)

	// Re-approving counts it in again.
	_, err = svc.SetStatus(context.Background(), review.ID, enums.ReviewStatusApproved)
	require.NoError(t, err)
	state = productRatings(t, db, product.ID)
	assert.Equal(t, 5.0, state.RatingAvg)
	assert.Equal(t, 1, state.RatingCount)

	// Setting the current status is a no-op.
	_, err = svc.SetStatus(context.Background(), review.ID, enums.ReviewStatusApproved)
	require.NoError(t, err)
	state = productRatings(t, db, product.ID)
	assert.Equal(t, 1, state.RatingCount)
}

func TestRecomputeRepairsDriftedAggregate(t *testing.T) {
	db := setupReviewsTestDB(t)
	svc, _, _ := newReviewService(t, db)
	product := seedRatedProduct(t, db)

	for _, rating := range []int{5, 4, 4} {
		_, err := svc.Create(context.Background(), CreateReviewInput{ProductID: product.ID, UserID: uuid.New(), Rating: rating})
		require.NoError(t, err)
	}

	// Corrupt the denormalized columns out of band.
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", product.ID).
		Updates(map[string]any{"rating_avg": 1.0, "rating_count": 99}).Error)

	require.NoError(t, svc.Recompute(context.Background(), product.ID))

	state := productRatings(t, db, product.ID)
	assert.Equal(t, 4.33, state.RatingAvg)
	assert.Equal(t, 3, state.RatingCount)
	assert.Equal(t, 2, state.RatingsBreakdown["4"])
	assert.Equal(t, 1, state.RatingsBreakdown["5"])
}
