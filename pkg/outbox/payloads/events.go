package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/gildedlane/marketplace-backend/pkg/enums"
)

// OrderCreatedEvent signals a checkout that produced a new order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	UserID      uuid.UUID   `json:"user_id"`
	VendorIDs   []uuid.UUID `json:"vendor_ids"`
	TotalCents  int64       `json:"total_cents"`
}

// OrderStatusChangedEvent is emitted on every accepted lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	ToStatus    enums.OrderStatus `json:"to_status"`
	Note        string            `json:"note,omitempty"`
}

// OrderDeliveryAssignedEvent tells dispatch systems which agent owns the order.
type OrderDeliveryAssignedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	DeliveryBoyID uuid.UUID `json:"delivery_boy_id"`
}

// CartExpiredEvent reports a guest cart reaped by the expiry job.
type CartExpiredEvent struct {
	CartID    uuid.UUID `json:"cart_id"`
	ExpiredAt time.Time `json:"expired_at"`
	ItemCount int       `json:"item_count"`
}

// ProductRatingsRefreshedEvent carries the recomputed aggregate after a review
// write or a full recompute.
type ProductRatingsRefreshedEvent struct {
	ProductID   uuid.UUID `json:"product_id"`
	RatingAvg   float64   `json:"rating_avg"`
	RatingCount int       `json:"rating_count"`
}
