package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/warehouselabs/fulfillment-backend/pkg/db/models"
	"github.com/warehouselabs/fulfillment-backend/pkg/enums"
)

// CreateInput opens a new order in the pending state.
type CreateInput struct {
	OrderNumber       string
	CustomerID        uuid.UUID
	Items             []ItemInput
	EstimatedShipDate *time.Time
	Notes             *string
	ActorID           uuid.UUID
}

// ItemInput is one requested product line.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// PickInput moves an order from pending to picked. Lines report what was
// actually pulled per product; products without a line are picked in full.
type PickInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Lines   []PickLine
}

// PickLine reports the actual quantity pulled for one product.
type PickLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// ShipInput moves a picked order to shipped. ApprovePartialFulfillment must
// be set explicitly on the call when outstanding unshipped items exist; the
// actor's role alone never implies approval.
type ShipInput struct {
	OrderID                   uuid.UUID
	ActorID                   uuid.UUID
	ActorRole                 enums.MemberRole
	ApprovePartialFulfillment bool
}

// ShipResult is the outcome of a ship attempt. A blocked partial fulfillment
// is not an error: RequiresApproval is set and the order is left untouched.
type ShipResult struct {
	OrderID              uuid.UUID         `json:"order_id"`
	Status               enums.OrderStatus `json:"status"`
	RequiresApproval     bool              `json:"requires_approval"`
	IsPartialFulfillment bool              `json:"is_partial_fulfillment"`
	UnshippedItemCount   int               `json:"unshipped_item_count"`
	CanApprove           bool              `json:"can_approve"`
}

// CancelInput cancels a pending or picked order.
type CancelInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Reason  *string
}

// ReplaceItemsInput swaps the full item set of a pending order.
type ReplaceItemsInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Items   []ItemInput
}

// DeleteInput permanently removes an order and its audit trail.
type DeleteInput struct {
	OrderID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.MemberRole
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status     *enums.OrderStatus
	CustomerID *uuid.UUID
}

// ListResult wraps a page of orders and the next cursor.
type ListResult struct {
	Items  []models.Order `json:"items"`
	Cursor string         `json:"cursor"`
}
