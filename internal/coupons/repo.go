package coupons

import (
	"context"

	"gorm.io/gorm"

	"github.com/gildedlane/marketplace-backend/pkg/db/models"
)

// Repository reads coupon rows. Codes are stored uppercase; callers normalize
// before lookup.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a coupon repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByCode loads a coupon by its normalized code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}
