package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/warehouselabs/fulfillment-backend/pkg/enums"
)

// Order represents a customer order moving through the fulfillment lifecycle.
// Status is mutated exclusively by the order service.
type Order struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber          string            `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID           uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	Status               enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	IsPartialFulfillment bool              `gorm:"column:is_partial_fulfillment;not null;default:false"`
	PartialApproved      bool              `gorm:"column:partial_approved;not null;default:false"`
	PartialApprovedBy    *uuid.UUID        `gorm:"column:partial_approved_by;type:uuid"`
	PartialApprovedAt    *time.Time        `gorm:"column:partial_approved_at"`
	EstimatedShipDate    *time.Time        `gorm:"column:estimated_ship_date"`
	ActualShipDate       *time.Time        `gorm:"column:actual_ship_date"`
	Notes                *string           `gorm:"column:notes"`
	Items                []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
