package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gildedlane/marketplace-backend/internal/coupons"
	"github.com/gildedlane/marketplace-backend/internal/pricing"
	"github.com/gildedlane/marketplace-backend/pkg/checkout"
	"github.com/gildedlane/marketplace-backend/pkg/db/models"
	"github.com/gildedlane/marketplace-backend/pkg/enums"
	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
	"github.com/gildedlane/marketplace-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type couponValidator interface {
	Validate(ctx context.Context, code string, subtotalCents int64) (*pricing.Coupon, error)
}

// AddItemInput captures one add-to-cart request.
type AddItemInput struct {
	ProductID       uuid.UUID
	Quantity        int
	Variant         *string
	RingSize        *string
	Personalization *string
	GiftMessage     *string
}

// Service owns the cart aggregate. Every mutation recomputes the cached
// pricing breakdown from the lines and coupon; it is never patched in place.
type Service interface {
	GetOrCreate(ctx context.Context, owner OwnerKey) (*models.Cart, error)
	AddItem(ctx context.Context, owner OwnerKey, input AddItemInput) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, owner OwnerKey, itemID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, owner OwnerKey, itemID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, owner OwnerKey) (*models.Cart, error)
	ApplyCoupon(ctx context.Context, owner OwnerKey, code string) (*models.Cart, error)
	RemoveCoupon(ctx context.Context, owner OwnerKey) (*models.Cart, error)
	Merge(ctx context.Context, sessionToken string, userID uuid.UUID, strategy enums.MergeStrategy) (*models.Cart, error)
	ValidateCheckout(ctx context.Context, owner OwnerKey) (*checkout.ReadinessResult, error)
	PricingSummary(ctx context.Context, owner OwnerKey) (pricing.Breakdown, error)
}

// ServiceParams carries cart service dependencies.
type ServiceParams struct {
	Repo       *Repository
	Tx         txRunner
	Products   productLoader
	Coupons    couponValidator
	Policy     pricing.Policy
	MaxLineQty int
	Logg       *logger.Logger
}

type service struct {
	repo       *Repository
	tx         txRunner
	products   productLoader
	coupons    couponValidator
	policy     pricing.Policy
	maxLineQty int
	logg       *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repository is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product loader is required")
	}
	if params.Coupons == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon validator is required")
	}
	if params.Logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	maxLineQty := params.MaxLineQty
	if maxLineQty <= 0 {
		maxLineQty = 10
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		products:   params.Products,
		coupons:    params.Coupons,
		policy:     params.Policy,
		maxLineQty: maxLineQty,
		logg:       params.Logg,
	}, nil
}

// GetOrCreate returns the owner's cart, creating an empty one on first use.
func (s *service) GetOrCreate(ctx context.Context, owner OwnerKey) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	cart, err := s.repo.FindByOwner(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	created, err := s.repo.Create(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

// AddItem appends a line or increments a matching one, capturing the catalog
// price at add time.
func (s *service) AddItem(ctx context.Context, owner OwnerKey, input AddItemInput) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 1 || input.Quantity > s.maxLineQty {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be between 1 and the per-line cap")
	}

	product, err := s.products.FindProductByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	var result *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		cart, err := s.getOrCreateTx(ctx, txRepo, owner)
		if err != nil {
			return err
		}

		if match := matchLine(cart.Items, input.ProductID, input.Variant, input.RingSize); match != nil {
			newQty := match.Quantity + input.Quantity
			if newQty > s.maxLineQty {
				return pkgerrors.New(pkgerrors.CodeValidation, "resulting quantity exceeds the per-line cap")
			}
			if product.StockQty < newQty {
				return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for product")
			}
			lineTotal := match.UnitPriceCents * int64(newQty)
			if err := txRepo.UpdateItemQuantity(ctx, match.ID, newQty, lineTotal); err != nil {
				return err
			}
		} else {
			if product.StockQty < input.Quantity {
				return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for product")
			}
			item := &models.CartItem{
				CartID:          cart.ID,
				ProductID:       product.ID,
				VendorID:        product.VendorID,
				Variant:         input.Variant,
				RingSize:        input.RingSize,
				Quantity:        input.Quantity,
				UnitPriceCents:  product.PriceCents,
				LineTotalCents:  product.PriceCents * int64(input.Quantity),
				Personalization: input.Personalization,
				GiftMessage:     input.GiftMessage,
			}
			if err := txRepo.CreateItem(ctx, item); err != nil {
				return err
			}
		}

		result, err = s.recompute(ctx, txRepo, owner)
		return err
	})
	if err != nil {
		return nil, wrapCartErr(err, "add cart item")
	}
	return result, nil
}

// UpdateItemQuantity replaces a line's quantity; zero removes the line.
func (s *service) UpdateItemQuantity(ctx context.Context, owner OwnerKey, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if quantity < 0 || quantity > s.maxLineQty {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be between 0 and the per-line cap")
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		cart, err := s.loadTx(ctx, txRepo, owner)
		if err != nil {
			return err
		}
		item, err := txRepo.FindItem(ctx, cart.ID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
			}
			return err
		}

		if quantity == 0 {
			if err := txRepo.DeleteItem(ctx, cart.ID, item.ID); err != nil {
				return err
			}
		} else {
			lineTotal := item.UnitPriceCents * int64(quantity)
			if err := txRepo.UpdateItemQuantity(ctx, item.ID, quantity, lineTotal); err != nil {
				return err
			}
		}

		result, err = s.recompute(ctx, txRepo, owner)
		return err
	})
	if err != nil {
		return nil, wrapCartErr(err, "update cart line")
	}
	return result, nil
}

// RemoveItem deletes one line.
func (s *service) RemoveItem(ctx context.Context, owner OwnerKey, itemID uuid.UUID) (*models.Cart, error) {
	return s.UpdateItemQuantity(ctx, owner, itemID, 0)
}

// Clear removes every line and the coupon.
func (s *service) Clear(ctx context.Context, owner OwnerKey) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		cart, err := s.loadTx(ctx, txRepo, owner)
		if err != nil {
			return err
		}
		if err := txRepo.DeleteItems(ctx, cart.ID); err != nil {
			return err
		}
		cart.CouponCode = nil
		if err := txRepo.SavePricing(ctx, cart); err != nil {
			return err
		}
		result, err = s.recompute(ctx, txRepo, owner)
		return err
	})
	if err != nil {
		return nil, wrapCartErr(err, "clear cart")
	}
	return result, nil
}

// ApplyCoupon validates the code against the current subtotal and stores it.
func (s *service) ApplyCoupon(ctx context.Context, owner OwnerKey, code string) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	normalized := coupons.NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		cart, err := s.loadTx(ctx, txRepo, owner)
		if err != nil {
			return err
		}

		subtotal := subtotalCents(cart.Items)
		if _, err := s.coupons.Validate(ctx, normalized, subtotal); err != nil {
			return err
		}

		cart.CouponCode = &normalized
		if err := txRepo.SavePricing(ctx, cart); err != nil {
			return err
		}
		result, err = s.recompute(ctx, txRepo, owner)
		return err
	})
	if err != nil {
		return nil, wrapCartErr(err, "apply coupon")
	}
	return result, nil
}

// RemoveCoupon clears the stored code.
func (s *service) RemoveCoupon(ctx context.Context, owner OwnerKey) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		cart, err := s.loadTx(ctx, txRepo, owner)
		if err != nil {
			return err
		}
		cart.CouponCode = nil
		if err := txRepo.SavePricing(ctx, cart); err != nil {
			return err
		}
		result, err = s.recompute(ctx, txRepo, owner)
		return err
	})
	if err != nil {
		return nil, wrapCartErr(err, "remove coupon")
	}
	return result, nil
}

// Merge folds a guest cart into the user's cart at sign-in. Merging an
// already-merged (absent) guest cart is a no-op, not an error.
func (s *service) Merge(ctx context.Context, sessionToken string, userID uuid.UUID, strategy enums.MergeStrategy) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !strategy.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid merge strategy")
	}
	guestOwner := GuestOwner(sessionToken)
	if err := guestOwner.Validate(); err != nil {
		return nil, err
	}
	userOwner := UserOwner(userID)

	guestCart, err := s.repo.FindByOwner(ctx, guestOwner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.GetOrCreate(ctx, userOwner)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
	}

	var result *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		userCart, err := s.getOrCreateTx(ctx, txRepo, userOwner)
		if err != nil {
			return err
		}

		switch strategy {
		case enums.MergeStrategyKeepUser:
			// Guest lines are discarded with the guest cart.
		case enums.MergeStrategyReplace:
			if err := txRepo.DeleteItems(ctx, userCart.ID); err != nil {
				return err
			}
			for _, guestItem := range guestCart.Items {
				if err := txRepo.CreateItem(ctx, copyLine(guestItem, userCart.ID, guestItem.Quantity)); err != nil {
					return err
				}
			}
		case enums.MergeStrategyCombine:
			for _, guestItem := range guestCart.Items {
				if match := matchLine(userCart.Items, guestItem.ProductID, guestItem.Variant, guestItem.RingSize); match != nil {
					newQty := match.Quantity + guestItem.Quantity
					if newQty > s.maxLineQty {
						newQty = s.maxLineQty
					}
					lineTotal := match.UnitPriceCents * int64(newQty)
					if err := txRepo.UpdateItemQuantity(ctx, match.ID, newQty, lineTotal); err != nil {
						return err
					}
				} else {
					if err := txRepo.CreateItem(ctx, copyLine(guestItem, userCart.ID, guestItem.Quantity)); err != nil {
						return err
					}
				}
			}
		}

		if err := txRepo.DeleteCart(ctx, guestCart.ID); err != nil {
			return err
		}
		result, err = s.recompute(ctx, txRepo, userOwner)
		return err
	})
	if err != nil {
		return nil, wrapCartErr(err, "merge carts")
	}
	return result, nil
}

// ValidateCheckout re-checks stock and price freshness for every line without
// mutating the cart. Price drift is a warning, never a silent re-price.
func (s *service) ValidateCheckout(ctx context.Context, owner OwnerKey) (*checkout.ReadinessResult, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	cart, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return s.validateCart(ctx, cart)
}

func (s *service) validateCart(ctx context.Context, cart *models.Cart) (*checkout.ReadinessResult, error) {
	result := &checkout.ReadinessResult{
		RequiredFields: checkout.RequiredFields{HasItems: len(cart.Items) > 0},
	}
	if len(cart.Items) == 0 {
		result.Errors = append(result.Errors, "cart is empty")
		result.Finalize()
		return result, nil
	}

	productIDs := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.products.FindProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products for validation")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	for _, item := range cart.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			result.InventoryIssues = append(result.InventoryIssues, checkout.InventoryIssue{
				LineID:       item.ID,
				ProductID:    item.ProductID,
				RequestedQty: item.Quantity,
				Reason:       "product no longer exists",
			})
			continue
		}
		if !product.IsActive {
			result.InventoryIssues = append(result.InventoryIssues, checkout.InventoryIssue{
				LineID:       item.ID,
				ProductID:    item.ProductID,
				ProductName:  product.Name,
				RequestedQty: item.Quantity,
				AvailableQty: product.StockQty,
				Reason:       "product is no longer available",
			})
			continue
		}
		if product.StockQty < item.Quantity {
			result.InventoryIssues = append(result.InventoryIssues, checkout.InventoryIssue{
				LineID:       item.ID,
				ProductID:    item.ProductID,
				ProductName:  product.Name,
				RequestedQty: item.Quantity,
				AvailableQty: product.StockQty,
				Reason:       "insufficient stock",
			})
		}
		if product.PriceCents != item.UnitPriceCents {
			result.Warnings = append(result.Warnings, checkout.PriceDriftWarning{
				LineID:                 item.ID,
				ProductID:              item.ProductID,
				CapturedUnitPriceCents: item.UnitPriceCents,
				CurrentUnitPriceCents:  product.PriceCents,
			})
		}
	}

	result.Finalize()
	return result, nil
}

// PricingSummary returns the cached breakdown, which every mutation keeps in
// step with the lines and coupon.
func (s *service) PricingSummary(ctx context.Context, owner OwnerKey) (pricing.Breakdown, error) {
	if err := owner.Validate(); err != nil {
		return pricing.Breakdown{}, err
	}
	cart, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pricing.Breakdown{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return pricing.Breakdown{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return breakdownFromCart(cart), nil
}

func (s *service) getOrCreateTx(ctx context.Context, txRepo *Repository, owner OwnerKey) (*models.Cart, error) {
	cart, err := txRepo.FindByOwner(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return txRepo.Create(ctx, owner)
}

func (s *service) loadTx(ctx context.Context, txRepo *Repository, owner OwnerKey) (*models.Cart, error) {
	cart, err := txRepo.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, err
	}
	return cart, nil
}

// recompute reloads the cart, re-derives the breakdown from its lines and
// coupon, and persists the cached columns. A coupon that no longer validates
// (expired, subtotal dropped below its minimum) is removed rather than left
// applied with a stale discount.
func (s *service) recompute(ctx context.Context, txRepo *Repository, owner OwnerKey) (*models.Cart, error) {
	cart, err := txRepo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	lines := make([]pricing.Line, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, pricing.Line{
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
		})
	}

	var coupon *pricing.Coupon
	if cart.CouponCode != nil {
		validated, err := s.coupons.Validate(ctx, *cart.CouponCode, subtotalCents(cart.Items))
		if err != nil {
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() == pkgerrors.CodeDependency {
				return nil, err
			}
			s.logg.Warn(s.logg.WithField(ctx, "coupon_code", *cart.CouponCode), "dropping coupon that no longer validates")
			cart.CouponCode = nil
		} else {
			coupon = validated
		}
	}

	breakdown, err := pricing.Compute(s.policy, lines, coupon)
	if err != nil {
		return nil, err
	}

	cart.SubtotalCents = breakdown.SubtotalCents
	cart.DiscountCents = breakdown.DiscountCents
	cart.TaxCents = breakdown.TaxCents
	cart.DeliveryFeeCents = breakdown.DeliveryFeeCents
	cart.TotalCents = breakdown.TotalCents
	cart.Currency = breakdown.Currency
	if err := txRepo.SavePricing(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func subtotalCents(items []models.CartItem) int64 {
	var subtotal int64
	for _, item := range items {
		subtotal += item.UnitPriceCents * int64(item.Quantity)
	}
	return subtotal
}

func breakdownFromCart(cart *models.Cart) pricing.Breakdown {
	return pricing.Breakdown{
		SubtotalCents:    cart.SubtotalCents,
		DiscountCents:    cart.DiscountCents,
		TaxCents:         cart.TaxCents,
		DeliveryFeeCents: cart.DeliveryFeeCents,
		TotalCents:       cart.TotalCents,
		Currency:         cart.Currency,
	}
}

func matchLine(items []models.CartItem, productID uuid.UUID, variant, ringSize *string) *models.CartItem {
	for i := range items {
		if items[i].ProductID == productID &&
			strPtrEqual(items[i].Variant, variant) &&
			strPtrEqual(items[i].RingSize, ringSize) {
			return &items[i]
		}
	}
	return nil
}

func strPtrEqual(a, b *string) bool {
	av, bv := "", ""
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

func copyLine(src models.CartItem, cartID uuid.UUID, quantity int) *models.CartItem {
	return &models.CartItem{
		CartID:          cartID,
		ProductID:       src.ProductID,
		VendorID:        src.VendorID,
		Variant:         src.Variant,
		RingSize:        src.RingSize,
		Quantity:        quantity,
		UnitPriceCents:  src.UnitPriceCents,
		LineTotalCents:  src.UnitPriceCents * int64(quantity),
		Personalization: src.Personalization,
		GiftMessage:     src.GiftMessage,
	}
}

func wrapCartErr(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
