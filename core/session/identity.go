package session

import "strings"

// Roles
const (
	RoleNone    Role = ""
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Role is the access-control role of a session.
type Role string

// ParseRole maps a backend role name (eg. "ADMIN") to a Role. Unknown names give RoleNone.
func ParseRole(name string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(name))); r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return r
	default:
		return RoleNone
	}
}

func (r Role) String() string { return string(r) }

type RoleDescriptor struct {
	ID       int64  `json:"id,omitempty"`
	RoleName string `json:"roleName"`
}

// Identity is the authenticated user as returned by the backend on login.
type Identity struct {
	ID       int64            `json:"id"`
	Username string           `json:"username"`
	FullName string           `json:"fullName,omitempty"`
	Email    string           `json:"email,omitempty"`
	Roles    []RoleDescriptor `json:"roles"`
}

// PrimaryRoleName is the raw name of the first role descriptor, the only one consulted
// for navigation and access control.
func (i *Identity) PrimaryRoleName() string {
	if i == nil || len(i.Roles) == 0 {
		return ""
	}
	return i.Roles[0].RoleName
}

// PrimaryRole derives the session role from the first role descriptor.
func (i *Identity) PrimaryRole() Role {
	return ParseRole(i.PrimaryRoleName())
}

// DisplayName prefers the full name over the username.
func (i *Identity) DisplayName() string {
	if i == nil {
		return ""
	}
	if name := strings.TrimSpace(i.FullName); name != "" {
		return name
	}
	return i.Username
}

func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.Roles = append([]RoleDescriptor(nil), i.Roles...)
	return &c
}

// State is a read-only snapshot of a session.
type State struct {
	Identity *Identity
	Loading  bool
}

// Authenticated is true iff an identity is present.
func (s State) Authenticated() bool { return s.Identity != nil }

func (s State) Role() Role { return s.Identity.PrimaryRole() }
