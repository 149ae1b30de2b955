package enums

import "fmt"

// MemberRole is the role claim carried by an access token.
type MemberRole string

const (
	MemberRoleCustomer    MemberRole = "customer"
	MemberRoleVendor      MemberRole = "vendor"
	MemberRoleAdmin       MemberRole = "admin"
	MemberRoleDeliveryBoy MemberRole = "delivery_boy"
)

var validMemberRoles = []MemberRole{
	MemberRoleCustomer,
	MemberRoleVendor,
	MemberRoleAdmin,
	MemberRoleDeliveryBoy,
}

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MemberRole.
func (m MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == m {
			return true
		}
	}
	return false
}

// ActorType maps the token role onto the order-history actor taxonomy.
func (m MemberRole) ActorType() ActorType {
	switch m {
	case MemberRoleVendor:
		return ActorTypeVendor
	case MemberRoleAdmin:
		return ActorTypeAdmin
	case MemberRoleDeliveryBoy:
		return ActorTypeDeliveryBoy
	default:
		return ActorTypeCustomer
	}
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
