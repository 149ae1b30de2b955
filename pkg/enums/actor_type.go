package enums

import "fmt"

// ActorType identifies who performed an order mutation. Status-history entries
// and the transition-authorization table are keyed on it.
type ActorType string

const (
	ActorTypeSystem      ActorType = "system"
	ActorTypeCustomer    ActorType = "customer"
	ActorTypeVendor      ActorType = "vendor"
	ActorTypeAdmin       ActorType = "admin"
	ActorTypeDeliveryBoy ActorType = "delivery_boy"
)

var validActorTypes = []ActorType{
	ActorTypeSystem,
	ActorTypeCustomer,
	ActorTypeVendor,
	ActorTypeAdmin,
	ActorTypeDeliveryBoy,
}

// String implements fmt.Stringer.
func (a ActorType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActorType.
func (a ActorType) IsValid() bool {
	for _, candidate := range validActorTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActorType converts raw input into an ActorType.
func ParseActorType(value string) (ActorType, error) {
	for _, candidate := range validActorTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor type %q", value)
}
