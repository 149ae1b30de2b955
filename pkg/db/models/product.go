package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/gildedlane/marketplace-backend/pkg/types"
)

// Product is a catalog entry owned by a vendor. The rating_* columns are the
// denormalized review aggregate maintained incrementally; reviews themselves
// live in the reviews table.
type Product struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID         uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null"`
	Name             string                 `gorm:"column:name;not null"`
	SKU              string                 `gorm:"column:sku;not null;uniqueIndex:ux_products_sku"`
	Description      *string                `gorm:"column:description"`
	Category         string                 `gorm:"column:category;not null"`
	Materials        pq.StringArray         `gorm:"column:materials;type:text[]"`
	Variants         pq.StringArray         `gorm:"column:variants;type:text[]"`
	Sizes            pq.StringArray         `gorm:"column:sizes;type:text[]"`
	PriceCents       int64                  `gorm:"column:price_cents;not null"`
	Currency         string                 `gorm:"column:currency;not null;default:'USD'"`
	StockQty         int                    `gorm:"column:stock_qty;not null;default:0"`
	IsActive         bool                   `gorm:"column:is_active;not null;default:true"`
	RatingAvg        float64                `gorm:"column:rating_avg;not null;default:0"`
	RatingCount      int                    `gorm:"column:rating_count;not null;default:0"`
	RatingsBreakdown types.RatingsBreakdown `gorm:"column:ratings_breakdown;type:jsonb"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
