package enums

import "fmt"

// OrderStatus tracks the lifecycle of a marketplace order.
type OrderStatus string

const (
	OrderStatusPendingPayment   OrderStatus = "pending_payment"
	OrderStatusPaymentConfirmed OrderStatus = "payment_confirmed"
	OrderStatusConfirmed        OrderStatus = "confirmed"
	OrderStatusProcessing       OrderStatus = "processing"
	OrderStatusCrafting         OrderStatus = "crafting"
	OrderStatusQualityCheck     OrderStatus = "quality_check"
	OrderStatusShipped          OrderStatus = "shipped"
	OrderStatusPickedUp         OrderStatus = "picked_up"
	OrderStatusInTransit        OrderStatus = "in_transit"
	OrderStatusOutForDelivery   OrderStatus = "out_for_delivery"
	OrderStatusDelivered        OrderStatus = "delivered"
	OrderStatusDeliveryFailed   OrderStatus = "delivery_failed"
	OrderStatusCancelled        OrderStatus = "cancelled"
	OrderStatusRefunded         OrderStatus = "refunded"
	OrderStatusReturned         OrderStatus = "returned"
	OrderStatusExchangeRequest  OrderStatus = "exchange_requested"
	OrderStatusExchangeApproved OrderStatus = "exchange_approved"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusPaymentConfirmed,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusCrafting,
	OrderStatusQualityCheck,
	OrderStatusShipped,
	OrderStatusPickedUp,
	OrderStatusInTransit,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusDeliveryFailed,
	OrderStatusCancelled,
	OrderStatusRefunded,
	OrderStatusReturned,
	OrderStatusExchangeRequest,
	OrderStatusExchangeApproved,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the order lifecycle. A delivered
// order can still open a return/exchange sub-workflow, which is modelled as its
// own transitions rather than a resumption of the happy path.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded, OrderStatusReturned:
		return true
	default:
		return false
	}
}

// IsPreShipment reports whether the order has not yet left the vendor.
func (o OrderStatus) IsPreShipment() bool {
	switch o {
	case OrderStatusPendingPayment, OrderStatusPaymentConfirmed, OrderStatusConfirmed,
		OrderStatusProcessing, OrderStatusCrafting, OrderStatusQualityCheck:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
