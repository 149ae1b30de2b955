package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/gildedlane/marketplace-backend/internal/pricing"
	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
	"github.com/gildedlane/marketplace-backend/pkg/logger"
)

// ServiceParams carries coupon service dependencies.
type ServiceParams struct {
	Repo *Repository
	Logg *logger.Logger
	Now  func() time.Time
}

// Service validates coupon codes against a cart subtotal and returns the
// pricing view of the discount.
type Service interface {
	Validate(ctx context.Context, code string, subtotalCents int64) (*pricing.Coupon, error)
}

type service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService constructs a coupon service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon repository is required")
	}
	if params.Logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, logg: params.Logg, now: now}, nil
}

// NormalizeCode trims and uppercases a user-entered coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) Validate(ctx context.Context, code string, subtotalCents int64) (*pricing.Coupon, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	coupon, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load coupon")
	}

	now := s.now()
	if !coupon.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "coupon is not active")
	}
	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "coupon is not active yet")
	}
	if coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "coupon has expired")
	}
	if subtotalCents < coupon.MinSubtotalCents {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "cart subtotal is below the coupon minimum").
			WithDetails(map[string]int64{
				"min_subtotal_cents": coupon.MinSubtotalCents,
				"subtotal_cents":     subtotalCents,
			})
	}

	return &pricing.Coupon{
		Type:        coupon.Type,
		AmountCents: coupon.AmountCents,
		PercentBps:  coupon.PercentBps,
	}, nil
}
