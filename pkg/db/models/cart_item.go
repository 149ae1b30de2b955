package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line in a cart. The unit price is captured when the line is
// added; checkout-readiness validation flags drift against the live catalog
// price rather than silently re-pricing. A product may appear on several lines
// when variant or size differ.
type CartItem struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID          uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID       uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	VendorID        uuid.UUID `gorm:"column:vendor_id;type:uuid;not null"`
	Variant         *string   `gorm:"column:variant"`
	RingSize        *string   `gorm:"column:ring_size"`
	Quantity        int       `gorm:"column:quantity;not null"`
	UnitPriceCents  int64     `gorm:"column:unit_price_cents;not null"`
	LineTotalCents  int64     `gorm:"column:line_total_cents;not null"`
	Personalization *string   `gorm:"column:personalization"`
	GiftMessage     *string   `gorm:"column:gift_message"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
