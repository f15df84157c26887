package enums

import (
	"fmt"
	"strings"
)

// Role is the marketplace role of the signed-in user.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

var validRoles = []Role{
	RoleBuyer,
	RoleSeller,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
