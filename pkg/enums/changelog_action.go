package enums

import "fmt"

// ChangelogAction labels an order changelog entry.
type ChangelogAction string

const (
	ChangelogActionOrderCreated        ChangelogAction = "order_created"
	ChangelogActionStatusChange        ChangelogAction = "status_change"
	ChangelogActionItemsReplaced       ChangelogAction = "items_replaced"
	ChangelogActionPartialApproval     ChangelogAction = "partial_approval"
	ChangelogActionUnshippedAuthorized ChangelogAction = "unshipped_authorized"
	ChangelogActionOrderDeleted        ChangelogAction = "order_deleted"
)

var validChangelogActions = []ChangelogAction{
	ChangelogActionOrderCreated,
	ChangelogActionStatusChange,
	ChangelogActionItemsReplaced,
	ChangelogActionPartialApproval,
	ChangelogActionUnshippedAuthorized,
	ChangelogActionOrderDeleted,
}

// String implements fmt.Stringer.
func (c ChangelogAction) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ChangelogAction.
func (c ChangelogAction) IsValid() bool {
	for _, candidate := range validChangelogActions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChangelogAction converts raw input into a ChangelogAction.
func ParseChangelogAction(value string) (ChangelogAction, error) {
	for _, candidate := range validChangelogActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid changelog action %q", value)
}
