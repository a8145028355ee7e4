package auth

import (
	"github.com/google/uuid"
)

// Role is a back-office access level. Roles form a strict hierarchy; a
// higher role is allowed everything a lower one is.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleModerator  Role = "moderator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

var roleRank = map[Role]int{
	RoleViewer:     0,
	RoleModerator:  1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// ParseRole maps a role claim to a Role. Unknown values resolve to the
// least-privileged role rather than failing open.
func ParseRole(s string) Role {
	r := Role(s)
	if _, ok := roleRank[r]; ok {
		return r
	}
	return RoleViewer
}

// Allows reports whether r grants access gated at minimum role min.
func (r Role) Allows(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// Identity is the resolved session identity used for capability checks and
// activity attribution.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}
