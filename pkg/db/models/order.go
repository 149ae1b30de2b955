package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gildedlane/marketplace-backend/pkg/enums"
	"github.com/gildedlane/marketplace-backend/pkg/types"
)

// Order is created once from a checkout-ready cart. Buyer, addresses, items
// and the pricing snapshot are immutable after creation; only status,
// payment/fulfillment status, the delivery assignment and the history log
// change. Orders are never deleted: cancellation, refund and return are
// terminal statuses.
type Order struct {
	ID                  uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber         string                  `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	UserID              uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Status              enums.OrderStatus       `gorm:"column:status;not null;default:'pending_payment'"`
	PaymentStatus       enums.PaymentStatus     `gorm:"column:payment_status;not null;default:'pending'"`
	FulfillmentStatus   enums.FulfillmentStatus `gorm:"column:fulfillment_status;not null;default:'unfulfilled'"`
	BillingAddress      types.Address           `gorm:"column:billing_address;type:jsonb"`
	ShippingAddress     types.Address           `gorm:"column:shipping_address;type:jsonb"`
	ShippingMethod      string                  `gorm:"column:shipping_method;not null"`
	PaymentMethod       string                  `gorm:"column:payment_method;not null"`
	CouponCode          *string                 `gorm:"column:coupon_code"`
	SubtotalCents       int64                   `gorm:"column:subtotal_cents;not null"`
	DiscountCents       int64                   `gorm:"column:discount_cents;not null;default:0"`
	TaxCents            int64                   `gorm:"column:tax_cents;not null;default:0"`
	DeliveryFeeCents    int64                   `gorm:"column:delivery_fee_cents;not null;default:0"`
	TotalCents          int64                   `gorm:"column:total_cents;not null"`
	Currency            string                  `gorm:"column:currency;not null;default:'USD'"`
	VendorItems         types.VendorItems       `gorm:"column:vendor_items;type:jsonb"`
	AssignedDeliveryBoy *uuid.UUID              `gorm:"column:assigned_delivery_boy;type:uuid"`
	Items               []OrderItem             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History             []OrderStatusHistory    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	DeliveredAt         *time.Time              `gorm:"column:delivered_at"`
	CancelledAt         *time.Time              `gorm:"column:cancelled_at"`
	CreatedAt           time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
