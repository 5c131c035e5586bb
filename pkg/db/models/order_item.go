package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is a single product line on an order. RequestedQuantity is what
// the customer asked for; PickedQuantity is what was actually pulled from
// stock during the pick pass (zero until the order is picked).
type OrderItem struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	RequestedQuantity int       `gorm:"column:requested_quantity;not null"`
	PickedQuantity    int       `gorm:"column:picked_quantity;not null;default:0"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
