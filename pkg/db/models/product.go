package models

import (
	"time"

	"github.com/google/uuid"
)

// Product holds the authoritative stock counter for a warehouse item.
// CurrentStock is mutated only through the inventory service so that the
// change log always reconciles to the live count.
type Product struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU             string     `gorm:"column:sku;not null;uniqueIndex"`
	Name            string     `gorm:"column:name;not null"`
	CurrentStock    int        `gorm:"column:current_stock;not null;default:0"`
	LastStockUpdate *time.Time `gorm:"column:last_stock_update"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
