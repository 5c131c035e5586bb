package enums

import "fmt"

// OrderStatus tracks the fulfillment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPicked    OrderStatus = "picked"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPicked,
	OrderStatusShipped,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusShipped || o == OrderStatusCancelled
}

// CanTransitionTo reports whether the lifecycle allows moving to target.
func (o OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if o.IsTerminal() {
		return false
	}
	switch target {
	case OrderStatusPicked:
		// Re-submitted picks are legal; shortfall dedup absorbs duplicates.
		return o == OrderStatusPending || o == OrderStatusPicked
	case OrderStatusShipped:
		return o == OrderStatusPicked
	case OrderStatusCancelled:
		return o == OrderStatusPending || o == OrderStatusPicked
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
