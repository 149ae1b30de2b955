package coupons

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gildedlane/marketplace-backend/pkg/db/models"
	"github.com/gildedlane/marketplace-backend/pkg/enums"
	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
	"github.com/gildedlane/marketplace-backend/pkg/logger"
)

func setupCouponsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	coupons := `
CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL,
  type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL DEFAULT 0,
  percent_bps INTEGER NOT NULL DEFAULT 0,
  min_subtotal_cents INTEGER NOT NULL DEFAULT 0,
  starts_at DATETIME,
  expires_at DATETIME,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(coupons).Error)
	return db
}

func newCouponService(t *testing.T, db *gorm.DB, now time.Time) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Repo: NewRepository(db),
		Logg: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:  func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc
}

func seedCoupon(t *testing.T, db *gorm.DB, coupon *models.Coupon) *models.Coupon {
	t.Helper()

	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	require.NoError(t, db.Create(coupon).Error)
	return coupon
}

func TestValidateNormalizesCode(t *testing.T) {
	db := setupCouponsTestDB(t)
	now := time.Now()
	svc := newCouponService(t, db, now)

	seedCoupon(t, db, &models.Coupon{
		Code:       "SPRING15",
		Type:       enums.CouponTypePercentage,
		PercentBps: 1500,
		IsActive:   true,
	})

	coupon, err := svc.Validate(context.Background(), "  spring15 ", 10000)
	require.NoError(t, err)
	assert.Equal(t, enums.CouponTypePercentage, coupon.Type)
	assert.Equal(t, int64(1500), coupon.PercentBps)
}

func TestValidateUnknownCode(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newCouponService(t, db, time.Now())

	_, err := svc.Validate(context.Background(), "NOPE-"+uuid.NewString()[:8], 10000)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestValidateWindow(t *testing.T) {
	db := setupCouponsTestDB(t)
	now := time.Now()
	svc := newCouponService(t, db, now)

	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	seedCoupon(t, db, &models.Coupon{
		Code:     "NOTYET",
		Type:     enums.CouponTypeFixed,
		IsActive: true,
		StartsAt: &future,
	})
	seedCoupon(t, db, &models.Coupon{
		Code:      "TOOLATE",
		Type:      enums.CouponTypeFixed,
		IsActive:  true,
		ExpiresAt: &past,
	})
	seedCoupon(t, db, &models.Coupon{
		Code:     "DISABLED",
		Type:     enums.CouponTypeFixed,
		IsActive: false,
	})

	for _, code := range []string{"NOTYET", "TOOLATE", "DISABLED"} {
		_, err := svc.Validate(context.Background(), code, 10000)
		require.Error(t, err, code)
		assert.Equal(t, pkgerrors.CodePrecondition, pkgerrors.As(err).Code(), code)
	}
}

func TestValidateMinSubtotal(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newCouponService(t, db, time.Now())

	seedCoupon(t, db, &models.Coupon{
		Code:             "BIGSPEND",
		Type:             enums.CouponTypeFixed,
		AmountCents:      2000,
		MinSubtotalCents: 50000,
		IsActive:         true,
	})

	_, err := svc.Validate(context.Background(), "BIGSPEND", 40000)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	assert.Equal(t, pkgerrors.CodePrecondition, typed.Code())
	assert.NotNil(t, typed.Details())

	coupon, err := svc.Validate(context.Background(), "BIGSPEND", 50000)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), coupon.AmountCents)
}
