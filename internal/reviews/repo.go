package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gildedlane/marketplace-backend/pkg/db/models"
	"github.com/gildedlane/marketplace-backend/pkg/enums"
	"github.com/gildedlane/marketplace-backend/pkg/types"
)

// Repository persists reviews and the denormalized rating columns they
// maintain on the product row.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a review repository over the shared gorm handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) FindByID(ctx context.Context, reviewID uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).
		Where("id = ?", reviewID).
		First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *Repository) FindByProductAndUser(ctx context.Context, productID, userID uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND user_id = ?", productID, userID).
		First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *Repository) Update(ctx context.Context, reviewID uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ?", reviewID).
		Updates(fields).Error
}

// SoftDelete marks the review deleted; the row stays for auditing.
func (r *Repository) SoftDelete(ctx context.Context, reviewID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", reviewID).
		Delete(&models.Review{}).Error
}

// ListByProduct returns non-deleted reviews for a product, newest first,
// optionally restricted to one status.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID, status *enums.ReviewStatus) ([]models.Review, error) {
	query := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var reviews []models.Review
	if err := query.Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

// ApprovedRatings returns the rating values of every approved, non-deleted
// review for the product. It feeds the full recompute path.
func (r *Repository) ApprovedRatings(ctx context.Context, productID uuid.UUID) ([]int, error) {
	var ratings []int
	if err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("product_id = ? AND status = ?", productID, enums.ReviewStatusApproved).
		Pluck("rating", &ratings).Error; err != nil {
		return nil, err
	}
	return ratings, nil
}

// LoadProductRatings reads the current aggregate columns off the product row.
func (r *Repository) LoadProductRatings(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// SaveProductRatings writes the aggregate columns back to the product row.
func (r *Repository) SaveProductRatings(ctx context.Context, productID uuid.UUID, avg float64, count int, breakdown types.RatingsBreakdown) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"rating_avg":        avg,
			"rating_count":      count,
			"ratings_breakdown": breakdown,
		}).Error
}
