package auth

import (
	"errors"
	"fmt"
)

// Role is the closed set of account roles. The zero value is not a valid role.
type Role uint8

const (
	roleUnknown Role = iota
	RoleOrganizer
	RoleAttendee
)

var (
	ErrUnknownRole = errors.New("unknown role")
	ErrForbidden   = errors.New("forbidden")
)

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleOrganizer, RoleAttendee}
}

// ParseRole matches the stored and wire spelling exactly.
func ParseRole(value string) (Role, error) {
	switch value {
	case "Organizer":
		return RoleOrganizer, nil
	case "Attendee":
		return RoleAttendee, nil
	default:
		return roleUnknown, fmt.Errorf("%w: %q", ErrUnknownRole, value)
	}
}

func (r Role) String() string {
	switch r {
	case RoleOrganizer:
		return "Organizer"
	case RoleAttendee:
		return "Attendee"
	case roleUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleOrganizer, RoleAttendee:
		return true
	default:
		return false
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// HasRole reports whether role is one of allowed. An invalid role never matches.
func HasRole(role Role, allowed ...Role) bool {
	if !role.Valid() {
		return false
	}
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
	}
	return false
}

// Require returns ErrForbidden unless the identity holds one of allowed.
func Require(identity Identity, allowed ...Role) error {
	if !HasRole(identity.Role, allowed...) {
		return ErrForbidden
	}
	return nil
}
