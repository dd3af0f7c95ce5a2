package entity

import "fmt"

// Role is a closed set of authorization roles. Only RoleMember is assigned
// today; new roles extend the enumeration rather than compare strings.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleMember
)

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	default:
		return "unknown"
	}
}

// ParseRole maps the stored column value back onto the enumeration.
func ParseRole(s string) (Role, error) {
	switch s {
	case "member":
		return RoleMember, nil
	default:
		return RoleUnknown, fmt.Errorf("unknown role %q", s)
	}
}
