package enums

import "fmt"

// InventoryChangeType labels why a product's stock count moved.
type InventoryChangeType string

const (
	InventoryChangeTypePick             InventoryChangeType = "pick"
	InventoryChangeTypeShip             InventoryChangeType = "ship"
	InventoryChangeTypeCancelRestore    InventoryChangeType = "cancel_restore"
	InventoryChangeTypeManualAdjustment InventoryChangeType = "manual_adjustment"
	InventoryChangeTypeStockCount       InventoryChangeType = "stock_count"
	InventoryChangeTypeShortfallFulfill InventoryChangeType = "shortfall_fulfillment"
)

var validInventoryChangeTypes = []InventoryChangeType{
	InventoryChangeTypePick,
	InventoryChangeTypeShip,
	InventoryChangeTypeCancelRestore,
	InventoryChangeTypeManualAdjustment,
	InventoryChangeTypeStockCount,
	InventoryChangeTypeShortfallFulfill,
}

// String implements fmt.Stringer.
func (i InventoryChangeType) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InventoryChangeType.
func (i InventoryChangeType) IsValid() bool {
	for _, candidate := range validInventoryChangeTypes {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInventoryChangeType converts raw input into an InventoryChangeType.
func ParseInventoryChangeType(value string) (InventoryChangeType, error) {
	for _, candidate := range validInventoryChangeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory change type %q", value)
}
