package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gildedlane/marketplace-backend/pkg/enums"
)

// OrderStatusHistory is the append-only log written on every status
// transition, including the initial entry at creation.
type OrderStatusHistory struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;not null"`
	ActorID   *uuid.UUID        `gorm:"column:actor_id;type:uuid"`
	ActorType enums.ActorType   `gorm:"column:actor_type;not null"`
	Note      *string           `gorm:"column:note"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
