package reviews

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/gildedlane/marketplace-backend/pkg/db"
	"github.com/gildedlane/marketplace-backend/pkg/db/models"
	"github.com/gildedlane/marketplace-backend/pkg/enums"
	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
	"github.com/gildedlane/marketplace-backend/pkg/logger"
	"github.com/gildedlane/marketplace-backend/pkg/outbox"
	"github.com/gildedlane/marketplace-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type productFinder interface {
	FindProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

// CreateReviewInput is one customer review submission.
type CreateReviewInput struct {
	ProductID uuid.UUID
	UserID    uuid.UUID
	OrderID   *uuid.UUID
	Rating    int
	Title     string
	Body      string
}

// UpdateReviewInput edits an existing review owned by the caller.
type UpdateReviewInput struct {
	ReviewID uuid.UUID
	UserID   uuid.UUID
	Rating   int
	Title    string
	Body     string
}

// Service owns review writes and keeps product rating aggregates in lockstep
// with them. Every mutation that touches an approved review adjusts
// rating_avg, rating_count and ratings_breakdown in the same transaction.
type Service interface {
	Create(ctx context.Context, input CreateReviewInput) (*models.Review, error)
	Update(ctx context.Context, input UpdateReviewInput) (*models.Review, error)
	Delete(ctx context.Context, reviewID, userID uuid.UUID, isAdmin bool) error
	SetStatus(ctx context.Context, reviewID uuid.UUID, status enums.ReviewStatus) (*models.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error)
	Recompute(ctx context.Context, productID uuid.UUID) error
}

// ServiceParams carries review service dependencies.
type ServiceParams struct {
	Repo     *Repository
	Products productFinder
	Tx       txRunner
	Outbox   outboxEmitter
	Logg     *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     *Repository
	products productFinder
	tx       txRunner
	outbox   outboxEmitter
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a review service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reviews repository is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product finder is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox emitter is required")
	}
	if params.Logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		tx:       params.Tx,
		outbox:   params.Outbox,
		logg:     params.Logg,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateReviewInput) (*models.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if input.ProductID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id and user id are required")
	}

	product, err := s.products.FindProductByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, wrapReviewErr(err, "loading product for review")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	review := &models.Review{
		ID:        uuid.New(),
		ProductID: input.ProductID,
		UserID:    input.UserID,
		OrderID:   input.OrderID,
		Rating:    input.Rating,
		Title:     input.Title,
		Body:      input.Body,
		Status:    enums.ReviewStatusApproved,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, review); err != nil {
			if dbpkg.IsUniqueViolation(err, "idx_reviews_product_user") {
				return pkgerrors.New(pkgerrors.CodeConflict, "you have already reviewed this product")
			}
			return err
		}
		return s.applyDelta(ctx, tx, input.ProductID, func(agg *ratingAggregate) {
			agg.add(input.Rating)
		})
	})
	if err != nil {
		return nil, wrapReviewErr(err, "creating review")
	}
	return review, nil
}

func (s *service) Update(ctx context.Context, input UpdateReviewInput) (*models.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	var updated *models.Review
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		review, err := repo.FindByID(ctx, input.ReviewID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
			}
			return err
		}
		if review.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "review belongs to another user")
		}

		oldRating := review.Rating
		fields := map[string]any{
			"rating":     input.Rating,
			"title":      input.Title,
			"body":       input.Body,
			"updated_at": s.now().UTC(),
		}
		if err := repo.Update(ctx, review.ID, fields); err != nil {
			return err
		}
		review.Rating = input.Rating
		review.Title = input.Title
		review.Body = input.Body
		updated = review

		if review.Status != enums.ReviewStatusApproved || oldRating == input.Rating {
			return nil
		}
		return s.applyDelta(ctx, tx, review.ProductID, func(agg *ratingAggregate) {
			agg.change(oldRating, input.Rating)
		})
	})
	if err != nil {
		return nil, wrapReviewErr(err, "updating review")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, reviewID, userID uuid.UUID, isAdmin bool) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		review, err := repo.FindByID(ctx, reviewID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
			}
			return err
		}
		if !isAdmin && review.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "review belongs to another user")
		}

		if err := repo.SoftDelete(ctx, review.ID); err != nil {
			return err
		}
		if review.Status != enums.ReviewStatusApproved {
			return nil
		}
		return s.applyDelta(ctx, tx, review.ProductID, func(agg *ratingAggregate) {
			agg.remove(review.Rating)
		})
	})
	return wrapReviewErr(err, "deleting review")
}

// SetStatus moderates a review. Moving into approved counts the rating in,
// moving out of approved counts it back out, so a moderation flip behaves
// like a delete followed by a create.
func (s *service) SetStatus(ctx context.Context, reviewID uuid.UUID, status enums.ReviewStatus) (*models.Review, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid review status")
	}

	var updated *models.Review
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		review, err := repo.FindByID(ctx, reviewID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
			}
			return err
		}
		if review.Status == status {
			updated = review
			return nil
		}

		previous := review.Status
		if err := repo.Update(ctx, review.ID, map[string]any{"status": status, "updated_at": s.now().UTC()}); err != nil {
			return err
		}
		review.Status = status
		updated = review

		switch {
		case status == enums.ReviewStatusApproved:
			return s.applyDelta(ctx, tx, review.ProductID, func(agg *ratingAggregate) {
				agg.add(review.Rating)
			})
		case previous == enums.ReviewStatusApproved:
			return s.applyDelta(ctx, tx, review.ProductID, func(agg *ratingAggregate) {
				agg.remove(review.Rating)
			})
		}
		return nil
	})
	if err != nil {
		return nil, wrapReviewErr(err, "moderating review")
	}
	return updated, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	approved := enums.ReviewStatusApproved
	reviews, err := s.repo.ListByProduct(ctx, productID, &approved)
	if err != nil {
		return nil, wrapReviewErr(err, "listing reviews")
	}
	return reviews, nil
}

// Recompute rebuilds the aggregate from the approved reviews on disk. It is
// the repair path for drift introduced outside the incremental deltas.
func (s *service) Recompute(ctx context.Context, productID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ratings, err := repo.ApprovedRatings(ctx, productID)
		if err != nil {
			return err
		}
		agg := recomputeFrom(ratings)
		if err := repo.SaveProductRatings(ctx, productID, agg.Avg, agg.Count, agg.Breakdown); err != nil {
			return err
		}
		return s.emitRefreshed(ctx, tx, productID, agg)
	})
	return wrapReviewErr(err, "recomputing product ratings")
}

// applyDelta loads the product aggregate inside the caller's transaction,
// mutates it, and writes it back along with the refresh event.
func (s *service) applyDelta(ctx context.Context, tx *gorm.DB, productID uuid.UUID, mutate func(agg *ratingAggregate)) error {
	repo := s.repo.WithTx(tx)
	product, err := repo.LoadProductRatings(ctx, productID)
	if err != nil {
		return err
	}

	agg := ratingAggregate{
		Avg:       product.RatingAvg,
		Count:     product.RatingCount,
		Breakdown: product.RatingsBreakdown,
	}
	mutate(&agg)

	if err := repo.SaveProductRatings(ctx, productID, agg.Avg, agg.Count, agg.Breakdown); err != nil {
		return err
	}
	return s.emitRefreshed(ctx, tx, productID, agg)
}

func (s *service) emitRefreshed(ctx context.Context, tx *gorm.DB, productID uuid.UUID, agg ratingAggregate) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventProductRatingsRefreshed,
		AggregateType: enums.AggregateProduct,
		AggregateID:   productID,
		Data: payloads.ProductRatingsRefreshedEvent{
			ProductID:   productID,
			RatingAvg:   agg.Avg,
			RatingCount: agg.Count,
		},
		OccurredAt: s.now().UTC(),
	})
}

func wrapReviewErr(err error, message string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
