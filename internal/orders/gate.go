package orders

import "github.com/warehouselabs/fulfillment-backend/pkg/enums"

// GateDecision is the outcome of the partial-fulfillment ship gate.
type GateDecision struct {
	Allowed          bool
	RequiresApproval bool
	CanApprove       bool
}

// EvaluateShipGate decides whether an order with the given number of
// outstanding unshipped items may ship. Approval is never implicit: a
// privileged role without the explicit approve flag is still blocked, and
// the flag without a privileged role is ignored.
func EvaluateShipGate(outstanding int, approve bool, role enums.MemberRole) GateDecision {
	if outstanding <= 0 {
		return GateDecision{Allowed: true}
	}

	canApprove := role.CanApprovePartial()
	if approve && canApprove {
		return GateDecision{Allowed: true, CanApprove: true}
	}
	return GateDecision{RequiresApproval: true, CanApprove: canApprove}
}
