package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/warehouselabs/fulfillment-backend/pkg/enums"
)

// OrderChangelog is an append-only audit entry for an order transition or
// material edit.
type OrderChangelog struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	UserID         uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	Action         enums.ChangelogAction `gorm:"column:action;type:changelog_action;not null"`
	Changes        json.RawMessage       `gorm:"column:changes;type:jsonb"`
	PreviousValues json.RawMessage       `gorm:"column:previous_values;type:jsonb"`
	Notes          *string               `gorm:"column:notes"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
}
