package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gildedlane/marketplace-backend/pkg/enums"
)

// Coupon is a marketplace-level discount code. Fixed coupons carry a cent
// amount; percentage coupons carry basis points (1500 = 15%).
type Coupon struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code             string           `gorm:"column:code;not null;uniqueIndex:ux_coupons_code"`
	Type             enums.CouponType `gorm:"column:type;not null"`
	AmountCents      int64            `gorm:"column:amount_cents;not null;default:0"`
	PercentBps       int64            `gorm:"column:percent_bps;not null;default:0"`
	MinSubtotalCents int64            `gorm:"column:min_subtotal_cents;not null;default:0"`
	StartsAt         *time.Time       `gorm:"column:starts_at"`
	ExpiresAt        *time.Time       `gorm:"column:expires_at"`
	IsActive         bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
