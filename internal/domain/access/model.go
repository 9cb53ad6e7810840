package access

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is a caregiver's permission level on one baby. The zero value RoleNone
// means no access; it is never stored.
type Role string

const (
	RoleNone   Role = ""
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if !role.Valid() {
		return RoleNone, fmt.Errorf("%w: %q", ErrUnknownRole, value)
	}
	return role, nil
}

// Scan rejects anything outside the closed role set so that a bad row never
// reaches permission checks as an unrecognised string.
func (r *Role) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		return fmt.Errorf("%w: null", ErrUnknownRole)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrUnknownRole, src)
	}

	role, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
	}
	return string(r), nil
}

func CanEdit(role Role) bool {
	return role == RoleOwner || role == RoleEditor
}

func CanManageCollaborators(role Role) bool {
	return role == RoleOwner
}
