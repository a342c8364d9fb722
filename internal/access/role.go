package access

import "strings"

// Role is the closed set of staff roles known to the service.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleNurse  Role = "nurse"
	RoleDoctor Role = "doctor"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleNurse, RoleDoctor}

// ParseRole maps a raw role name onto a known Role. Matching is
// case-insensitive so Keycloak realm roles ("NURSE") resolve too.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r.Valid() {
		return r, true
	}
	return "", false
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleNurse, RoleDoctor:
		return true
	}
	return false
}

// IsStaff reports whether r is a care role bound by patient assignment.
func (r Role) IsStaff() bool {
	return r == RoleNurse || r == RoleDoctor
}

func (r Role) String() string {
	return string(r)
}
