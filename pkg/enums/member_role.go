package enums

import "fmt"

// MemberRole represents a warehouse operator's permission level.
type MemberRole string

const (
	MemberRoleAdmin    MemberRole = "admin"
	MemberRoleManager  MemberRole = "manager"
	MemberRoleOperator MemberRole = "operator"
	MemberRoleViewer   MemberRole = "viewer"
)

var validMemberRoles = []MemberRole{
	MemberRoleAdmin,
	MemberRoleManager,
	MemberRoleOperator,
	MemberRoleViewer,
}

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MemberRole.
func (m MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == m {
			return true
		}
	}
	return false
}

// CanApprovePartial reports whether the role may sign off partial
// fulfillments and unshipped item authorizations.
func (m MemberRole) CanApprovePartial() bool {
	return m == MemberRoleAdmin || m == MemberRoleManager
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
