package db

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Operation
// --------------------------------------------------------------------------

// Operation is the kind of access a requester wants on a database. The
// permission model only distinguishes these three kinds, every wire
// command maps onto one of them (or onto the admin requirement).
type Operation uint8

const (
	OpRead Operation = iota
	OpWrite
	OpList
)

// String returns the string representation of an Operation.
func (op Operation) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpList:
		return "list"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Role
// --------------------------------------------------------------------------

// Role is the tier an access key falls into for one database. Roles are
// resolved in order: super admin, admin, user, other. The first match wins,
// so a key present in both the admin and user lists is an admin.
type Role uint8

const (
	RoleOther Role = iota
	RoleUser
	RoleAdmin
	RoleSuperAdmin
)

// IsAdmin returns true for the admin and super admin tiers.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// String returns the string representation of a Role.
func (r Role) String() string {
	switch r {
	case RoleSuperAdmin:
		return "super_admin"
	case RoleAdmin:
		return "admin"
	case RoleUser:
		return "user"
	case RoleOther:
		return "other"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for Role.
// This allows Role to be serialized as a string in JSON.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for Role.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	role, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// ParseRole converts the string form back into a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "super_admin":
		return RoleSuperAdmin, nil
	case "admin":
		return RoleAdmin, nil
	case "user":
		return RoleUser, nil
	case "other":
		return RoleOther, nil
	default:
		return RoleOther, fmt.Errorf("unknown role: %s", s)
	}
}

// --------------------------------------------------------------------------
// Role Resolution
// --------------------------------------------------------------------------

// RoleOf resolves the role of an access key for a database with the given
// settings. superAdmins is the server-wide super admin list, members of it
// outrank every per-database list.
func (s *Settings) RoleOf(key string, superAdmins []string) Role {
	if contains(superAdmins, key) {
		return RoleSuperAdmin
	}
	if s.IsAdmin(key) {
		return RoleAdmin
	}
	if s.IsUser(key) {
		return RoleUser
	}
	return RoleOther
}

// Allows decides whether the given role may perform op under these
// settings. Admin tiers are always allowed, users and others are governed
// by their rwx bits.
func (s *Settings) Allows(role Role, op Operation) bool {
	switch role {
	case RoleAdmin, RoleSuperAdmin:
		return true
	case RoleUser:
		return s.CanUsersRWX.Allows(op)
	default:
		return s.CanOthersRWX.Allows(op)
	}
}
