package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gildedlane/marketplace-backend/pkg/db/models"
)

// Repository exposes persistence operations for carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByOwner loads the owner's cart with its lines in add order.
func (r *Repository) FindByOwner(ctx context.Context, owner OwnerKey) (*models.Cart, error) {
	var cart models.Cart
	err := owner.scope(r.db.WithContext(ctx)).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Create inserts an empty cart for the owner.
func (r *Repository) Create(ctx context.Context, owner OwnerKey) (*models.Cart, error) {
	cart := &models.Cart{ID: uuid.New(), Currency: "USD"}
	if owner.IsUser() {
		userID := owner.UserID()
		cart.UserID = &userID
	} else {
		token := owner.SessionToken()
		cart.SessionToken = &token
	}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// SavePricing writes the coupon code and cached breakdown columns.
func (r *Repository) SavePricing(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cart.ID).
		Updates(map[string]any{
			"coupon_code":        cart.CouponCode,
			"subtotal_cents":     cart.SubtotalCents,
			"discount_cents":     cart.DiscountCents,
			"tax_cents":          cart.TaxCents,
			"delivery_fee_cents": cart.DeliveryFeeCents,
			"total_cents":        cart.TotalCents,
			"currency":           cart.Currency,
		}).Error
}

// CreateItem inserts a new cart line.
func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItemQuantity replaces a line's quantity and total.
func (r *Repository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int, lineTotalCents int64) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"quantity":         quantity,
			"line_total_cents": lineTotalCents,
		}).Error
}

// FindItem loads one line scoped to its cart.
func (r *Repository) FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes one line.
func (r *Repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&models.CartItem{}).Error
}

// DeleteItems removes every line of a cart.
func (r *Repository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}

// DeleteCart removes the cart and its lines.
func (r *Repository) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	if err := r.DeleteItems(ctx, cartID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", cartID).
		Delete(&models.Cart{}).Error
}

// ListExpiredGuestCarts returns guest carts untouched since the cutoff. Used
// by the expiry sweep; user carts never expire.
func (r *Repository) ListExpiredGuestCarts(ctx context.Context, cutoff time.Time, limit int) ([]models.Cart, error) {
	var carts []models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("session_token IS NOT NULL AND updated_at < ?", cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&carts).Error
	if err != nil {
		return nil, err
	}
	return carts, nil
}
