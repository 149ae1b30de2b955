package models

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is a seller on the marketplace. Ownership of the vendor account
// (users, payouts) lives outside this service; orders only need the identity
// and display name resolved at snapshot time.
type Vendor struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex:ux_vendors_slug"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
