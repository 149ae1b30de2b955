package orders

import (
	"github.com/google/uuid"

	"github.com/gildedlane/marketplace-backend/pkg/enums"
)

// Actor identifies who is attempting an order mutation.
type Actor struct {
	ID   uuid.UUID
	Type enums.ActorType
}

// anyStatus matches every current status in the transition table.
const anyStatus enums.OrderStatus = "*"

// preShipment matches any status for which IsPreShipment holds.
const preShipment enums.OrderStatus = "pre_shipment"

// deliveryTargets is the fixed subset of statuses a delivery agent may set.
// Delivery transitions check only target membership plus assignment; the
// current status is not consulted, matching dispatch apps that report stages
// out of order.
var deliveryTargets = map[enums.OrderStatus]struct{}{
	enums.OrderStatusPickedUp:       {},
	enums.OrderStatusInTransit:      {},
	enums.OrderStatusOutForDelivery: {},
	enums.OrderStatusDelivered:      {},
	enums.OrderStatusDeliveryFailed: {},
}

// transitionTable is the authorization table keyed by (current status, actor
// type). anyStatus and preShipment rows apply when no exact row matches the
// current status. Delivery agents are authorized separately via
// deliveryTargets.
var transitionTable = map[enums.OrderStatus]map[enums.ActorType][]enums.OrderStatus{
	enums.OrderStatusPendingPayment: {
		enums.ActorTypeSystem: {enums.OrderStatusPaymentConfirmed},
		enums.ActorTypeAdmin:  {enums.OrderStatusPaymentConfirmed},
	},
	enums.OrderStatusPaymentConfirmed: {
		enums.ActorTypeSystem: {enums.OrderStatusConfirmed},
		enums.ActorTypeAdmin:  {enums.OrderStatusConfirmed},
	},
	enums.OrderStatusConfirmed: {
		enums.ActorTypeSystem: {enums.OrderStatusProcessing},
		enums.ActorTypeAdmin:  {enums.OrderStatusProcessing},
		enums.ActorTypeVendor: {enums.OrderStatusProcessing},
	},
	enums.OrderStatusProcessing: {
		enums.ActorTypeSystem: {enums.OrderStatusCrafting, enums.OrderStatusQualityCheck, enums.OrderStatusShipped},
		enums.ActorTypeAdmin:  {enums.OrderStatusCrafting, enums.OrderStatusQualityCheck, enums.OrderStatusShipped},
		enums.ActorTypeVendor: {enums.OrderStatusCrafting, enums.OrderStatusQualityCheck, enums.OrderStatusShipped},
	},
	enums.OrderStatusCrafting: {
		enums.ActorTypeSystem: {enums.OrderStatusQualityCheck, enums.OrderStatusShipped},
		enums.ActorTypeAdmin:  {enums.OrderStatusQualityCheck, enums.OrderStatusShipped},
		enums.ActorTypeVendor: {enums.OrderStatusQualityCheck, enums.OrderStatusShipped},
	},
	enums.OrderStatusQualityCheck: {
		enums.ActorTypeSystem: {enums.OrderStatusShipped},
		enums.ActorTypeAdmin:  {enums.OrderStatusShipped},
		enums.ActorTypeVendor: {enums.OrderStatusShipped},
	},
	enums.OrderStatusDelivered: {
		enums.ActorTypeCustomer: {enums.OrderStatusExchangeRequest, enums.OrderStatusReturned},
		enums.ActorTypeAdmin:    {enums.OrderStatusReturned, enums.OrderStatusRefunded},
	},
	enums.OrderStatusExchangeRequest: {
		enums.ActorTypeAdmin:  {enums.OrderStatusExchangeApproved, enums.OrderStatusRefunded},
		enums.ActorTypeSystem: {enums.OrderStatusExchangeApproved},
	},
	enums.OrderStatusExchangeApproved: {
		enums.ActorTypeAdmin: {enums.OrderStatusReturned, enums.OrderStatusRefunded},
	},
	preShipment: {
		enums.ActorTypeSystem:   {enums.OrderStatusCancelled, enums.OrderStatusRefunded},
		enums.ActorTypeAdmin:    {enums.OrderStatusCancelled, enums.OrderStatusRefunded},
		enums.ActorTypeCustomer: {enums.OrderStatusCancelled},
	},
}

// isDeliveryTarget reports whether the status belongs to the delivery subset.
func isDeliveryTarget(status enums.OrderStatus) bool {
	_, ok := deliveryTargets[status]
	return ok
}

// allowedTransition reports whether the actor type may move an order from
// current to target. Delivery agents never consult this table.
func allowedTransition(current, target enums.OrderStatus, actorType enums.ActorType) bool {
	if contains(transitionTable[current][actorType], target) {
		return true
	}
	if current.IsPreShipment() && contains(transitionTable[preShipment][actorType], target) {
		return true
	}
	return contains(transitionTable[anyStatus][actorType], target)
}

// actorMayEverSet reports whether the actor type can reach the target from any
// status. Used to distinguish a forbidden actor from a disallowed state.
func actorMayEverSet(target enums.OrderStatus, actorType enums.ActorType) bool {
	for _, byActor := range transitionTable {
		if contains(byActor[actorType], target) {
			return true
		}
	}
	return false
}

func contains(statuses []enums.OrderStatus, target enums.OrderStatus) bool {
	for _, status := range statuses {
		if status == target {
			return true
		}
	}
	return false
}
