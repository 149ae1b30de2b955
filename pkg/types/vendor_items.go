package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// VendorItems maps a vendor id to the order-item ids that vendor fulfils.
// Persisted as JSONB on the order row.
type VendorItems map[uuid.UUID][]uuid.UUID

// Contains reports whether the vendor's bucket includes the item id.
func (v VendorItems) Contains(vendorID, itemID uuid.UUID) bool {
	for _, id := range v[vendorID] {
		if id == itemID {
			return true
		}
	}
	return false
}

// Value marshals the map into JSON for Postgres.
func (v VendorItems) Value() (driver.Value, error) {
	if v == nil {
		return "{}", nil
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes JSONB into the map.
func (v *VendorItems) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}

	var raw []byte
	switch typed := value.(type) {
	case string:
		raw = []byte(typed)
	case []byte:
		raw = typed
	default:
		return fmt.Errorf("vendor items: unsupported scan type %T", value)
	}

	result := make(VendorItems)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*v = result
	return nil
}
