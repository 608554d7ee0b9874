package enums

import "slices"

// Role identifies the actor kind making a request. RoleSystem is reserved for
// background jobs and internal callbacks and never authenticates.
type Role string

const (
	RoleCustomer     Role = "customer"
	RolePhotographer Role = "photographer"
	RoleAdmin        Role = "admin"
	RoleSystem       Role = "system"
)

var validRoles = []Role{
	RoleCustomer,
	RolePhotographer,
	RoleAdmin,
	RoleSystem,
}

func (r Role) String() string { return string(r) }

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool { return slices.Contains(validRoles, r) }

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	return parseEnum(validRoles, value, "role")
}

// CanRegister reports whether the role may be chosen at sign-up.
func (r Role) CanRegister() bool {
	return r == RoleCustomer || r == RolePhotographer
}
