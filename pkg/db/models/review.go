package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gildedlane/marketplace-backend/pkg/enums"
)

// Review is a customer rating for a product. One live review per user per
// product is enforced by a partial unique index that ignores soft-deleted
// rows, so deleting a review frees the slot. Soft deletes keep the row
// around for auditing while the rating maintainer treats a delete as a
// removal from the aggregate.
type Review struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index"`
	UserID    uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	OrderID   *uuid.UUID         `gorm:"column:order_id;type:uuid"`
	Rating    int                `gorm:"column:rating;not null"`
	Title     string             `gorm:"column:title"`
	Body      string             `gorm:"column:body"`
	Status    enums.ReviewStatus `gorm:"column:status;not null;default:'pending'"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt     `gorm:"column:deleted_at;index"`
}
