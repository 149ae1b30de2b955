package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gildedlane/marketplace-backend/pkg/enums"
)

func TestAllowedTransition(t *testing.T) {
	cases := []struct {
		name    string
		current enums.OrderStatus
		target  enums.OrderStatus
		actor   enums.ActorType
		want    bool
	}{
		{"system confirms payment", enums.OrderStatusPendingPayment, enums.OrderStatusPaymentConfirmed, enums.ActorTypeSystem, true},
		{"vendor starts processing", enums.OrderStatusConfirmed, enums.OrderStatusProcessing, enums.ActorTypeVendor, true},
		{"vendor ships from crafting", enums.OrderStatusCrafting, enums.OrderStatusShipped, enums.ActorTypeVendor, true},
		{"customer cannot ship", enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.ActorTypeCustomer, false},
		{"customer requests exchange after delivery", enums.OrderStatusDelivered, enums.OrderStatusExchangeRequest, enums.ActorTypeCustomer, true},
		{"customer cannot self-refund", enums.OrderStatusDelivered, enums.OrderStatusRefunded, enums.ActorTypeCustomer, false},
		{"admin refunds delivered order", enums.OrderStatusDelivered, enums.OrderStatusRefunded, enums.ActorTypeAdmin, true},
		{"admin approves exchange", enums.OrderStatusExchangeRequest, enums.OrderStatusExchangeApproved, enums.ActorTypeAdmin, true},
		{"customer cancels pre-shipment", enums.OrderStatusCrafting, enums.OrderStatusCancelled, enums.ActorTypeCustomer, true},
		{"customer cannot cancel after shipment", enums.OrderStatusShipped, enums.OrderStatusCancelled, enums.ActorTypeCustomer, false},
		{"admin refunds pre-shipment", enums.OrderStatusQualityCheck, enums.OrderStatusRefunded, enums.ActorTypeAdmin, true},
		{"no backwards transition", enums.OrderStatusShipped, enums.OrderStatusProcessing, enums.ActorTypeAdmin, false},
		{"terminal cancelled stays terminal", enums.OrderStatusCancelled, enums.OrderStatusConfirmed, enums.ActorTypeAdmin, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, allowedTransition(tc.current, tc.target, tc.actor))
		})
	}
}

func TestActorMayEverSet(t *testing.T) {
	// Distinguishes a role that can never reach a status from one blocked
	// only by the order's current state.
	assert.True(t, actorMayEverSet(enums.OrderStatusShipped, enums.ActorTypeVendor))
	assert.True(t, actorMayEverSet(enums.OrderStatusCancelled, enums.ActorTypeCustomer))
	assert.False(t, actorMayEverSet(enums.OrderStatusShipped, enums.ActorTypeCustomer))
	assert.False(t, actorMayEverSet(enums.OrderStatusRefunded, enums.ActorTypeVendor))
}

func TestDeliveryTargetSubset(t *testing.T) {
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusPickedUp,
		enums.OrderStatusInTransit,
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusDelivered,
		enums.OrderStatusDeliveryFailed,
	} {
		assert.True(t, isDeliveryTarget(status), "%s should be a delivery target", status)
	}
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusCancelled,
		enums.OrderStatusRefunded,
		enums.OrderStatusShipped,
		enums.OrderStatusReturned,
	} {
		assert.False(t, isDeliveryTarget(status), "%s should not be a delivery target", status)
	}
}

func TestGenerateOrderNumberShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		number, err := GenerateOrderNumber(time.Now())
		assert.NoError(t, err)
		assert.Regexp(t, `^GL-\d{8}-[23456789A-HJ-NP-Z]{6}$`, number)
		seen[number] = true
	}
	// Random suffixes should essentially never collide in 50 draws.
	assert.Greater(t, len(seen), 45)
}
