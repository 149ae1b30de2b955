package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gildedlane/marketplace-backend/pkg/enums"
)

// OrderItem is the immutable snapshot of one cart line at order creation.
// Vendor and product names are resolved at that moment so later catalog edits
// never rewrite order history.
type OrderItem struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID         uuid.UUID               `gorm:"column:product_id;type:uuid;not null"`
	VendorID          uuid.UUID               `gorm:"column:vendor_id;type:uuid;not null;index"`
	VendorName        string                  `gorm:"column:vendor_name;not null"`
	ProductName       string                  `gorm:"column:product_name;not null"`
	SKU               string                  `gorm:"column:sku;not null"`
	Variant           *string                 `gorm:"column:variant"`
	RingSize          *string                 `gorm:"column:ring_size"`
	Personalization   *string                 `gorm:"column:personalization"`
	GiftMessage       *string                 `gorm:"column:gift_message"`
	Quantity          int                     `gorm:"column:quantity;not null"`
	UnitPriceCents    int64                   `gorm:"column:unit_price_cents;not null"`
	LineTotalCents    int64                   `gorm:"column:line_total_cents;not null"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;not null;default:'unfulfilled'"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
