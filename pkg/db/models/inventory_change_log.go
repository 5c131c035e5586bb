package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/warehouselabs/fulfillment-backend/pkg/enums"
)

// InventoryChangeLog is an append-only record of a stock mutation. Delta is
// the quantity actually applied, which can differ from what was requested
// when the counter clamps at zero.
type InventoryChangeLog struct {
	ID               uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID        uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index"`
	UserID           uuid.UUID                 `gorm:"column:user_id;type:uuid;not null"`
	Type             enums.InventoryChangeType `gorm:"column:type;type:inventory_change_type;not null"`
	PreviousQuantity int                       `gorm:"column:previous_quantity;not null"`
	NewQuantity      int                       `gorm:"column:new_quantity;not null"`
	Delta            int                       `gorm:"column:delta;not null"`
	Reference        *string                   `gorm:"column:reference"`
	CreatedAt        time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
