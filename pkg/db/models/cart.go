package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the mutable pre-purchase basket. Exactly one of UserID or
// SessionToken is set: authenticated shoppers own at most one cart keyed by
// user id, guests own at most one keyed by session token. The *_cents columns
// cache the pricing breakdown and are recomputed from the lines and coupon on
// every mutation, never patched in place.
type Cart struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex:ux_carts_user_id"`
	SessionToken     *string    `gorm:"column:session_token;uniqueIndex:ux_carts_session_token"`
	CouponCode       *string    `gorm:"column:coupon_code"`
	SubtotalCents    int64      `gorm:"column:subtotal_cents;not null;default:0"`
	DiscountCents    int64      `gorm:"column:discount_cents;not null;default:0"`
	TaxCents         int64      `gorm:"column:tax_cents;not null;default:0"`
	DeliveryFeeCents int64      `gorm:"column:delivery_fee_cents;not null;default:0"`
	TotalCents       int64      `gorm:"column:total_cents;not null;default:0"`
	Currency         string     `gorm:"column:currency;not null;default:'USD'"`
	Items            []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
