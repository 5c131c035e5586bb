package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warehouselabs/fulfillment-backend/pkg/broadcast"
	"github.com/warehouselabs/fulfillment-backend/pkg/enums"
	"github.com/warehouselabs/fulfillment-backend/pkg/logger"
)

// Event types carried on the broadcast channel. Observers subscribe by type.
const (
	EventOrderStatusChanged    = "order.status_changed"
	EventRequiresAuthorization = "unshipped.requires_authorization"
	EventOrderDeleted          = "order.deleted"
	EventStockAdjusted         = "stock.adjusted"
)

// OrderStatusEvent announces a completed order state transition.
type OrderStatusEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	NewStatus      enums.OrderStatus `json:"new_status"`
	ActorID        uuid.UUID         `json:"actor_id"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

// AuthorizationEvent flags unshipped items awaiting manual sign-off.
type AuthorizationEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`
	ItemCount   int       `json:"item_count"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// OrderDeletedEvent announces a hard delete so observer caches can evict.
type OrderDeletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	ActorID     uuid.UUID `json:"actor_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// StockEvent announces a stock counter change outside of order flows.
type StockEvent struct {
	ProductID        uuid.UUID                 `json:"product_id"`
	ChangeType       enums.InventoryChangeType `json:"change_type"`
	PreviousQuantity int                       `json:"previous_quantity"`
	NewQuantity      int                       `json:"new_quantity"`
	Delta            int                       `json:"delta"`
}

// Emitter publishes engine events to the broadcast channel. Every method is
// fire-and-forget: publish failures are logged and swallowed so the business
// operation that triggered the event is never rolled back or retried for the
// sake of a notification.
type Emitter struct {
	publisher broadcast.Publisher
	logger    *logger.Logger
}

// NewEmitter wires an emitter over the given publisher.
func NewEmitter(publisher broadcast.Publisher, logg *logger.Logger) (*Emitter, error) {
	if publisher == nil {
		return nil, fmt.Errorf("broadcast publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Emitter{publisher: publisher, logger: logg}, nil
}

// OrderStatusChanged fans out a state transition.
func (e *Emitter) OrderStatusChanged(ctx context.Context, event OrderStatusEvent) {
	e.publish(ctx, EventOrderStatusChanged, event)
}

// RequiresAuthorization fans out a pending unshipped-item sign-off.
func (e *Emitter) RequiresAuthorization(ctx context.Context, event AuthorizationEvent) {
	e.publish(ctx, EventRequiresAuthorization, event)
}

// OrderDeleted fans out a hard delete.
func (e *Emitter) OrderDeleted(ctx context.Context, event OrderDeletedEvent) {
	e.publish(ctx, EventOrderDeleted, event)
}

// StockAdjusted fans out a manual stock mutation.
func (e *Emitter) StockAdjusted(ctx context.Context, event StockEvent) {
	e.publish(ctx, EventStockAdjusted, event)
}

func (e *Emitter) publish(ctx context.Context, eventType string, payload any) {
	err := e.publisher.Publish(ctx, broadcast.Event{Type: eventType, Payload: payload})
	if err == nil {
		return
	}
	ctx = e.logger.WithField(ctx, "event_type", eventType)
	e.logger.Error(ctx, "dropping broadcast event", err)
}
