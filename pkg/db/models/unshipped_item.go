package models

import (
	"time"

	"github.com/google/uuid"
)

// UnshippedItem records a shortfall: quantity requested on an order line but
// not actually picked. Rows are never deleted; Authorized flips when a
// manager sanctions the remainder and Shipped flips when a follow-up
// shipment fulfills it.
type UnshippedItem struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID    uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	CustomerID   uuid.UUID  `gorm:"column:customer_id;type:uuid;not null;index"`
	Quantity     int        `gorm:"column:quantity;not null"`
	Authorized   bool       `gorm:"column:authorized;not null;default:false"`
	AuthorizedBy *uuid.UUID `gorm:"column:authorized_by;type:uuid"`
	AuthorizedAt *time.Time `gorm:"column:authorized_at"`
	Shipped      bool       `gorm:"column:shipped;not null;default:false"`
	ShippedAt    *time.Time `gorm:"column:shipped_at"`
	Notes        *string    `gorm:"column:notes"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}
