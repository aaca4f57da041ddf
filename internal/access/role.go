// Package access decides which stores, rows and actions an authenticated actor may
// touch. Every function here is pure; persistence layers apply the results.
package access

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleRootAdmin     Role = "root_admin"
	RoleAdministrator Role = "administrator"
	RoleModerator     Role = "moderator"
	RoleMember        Role = "member"
	RoleViewer        Role = "viewer"
)

var (
	ErrPermissionDenied = errors.New("permission_denied")
	ErrInvalidActor     = errors.New("invalid_actor")
	ErrInvalidRole      = errors.New("invalid_role")
)

// Roles lists every role, most privileged first.
func Roles() []Role {
	return []Role{RoleRootAdmin, RoleAdministrator, RoleModerator, RoleMember, RoleViewer}
}

func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleRootAdmin, RoleAdministrator, RoleModerator, RoleMember, RoleViewer:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// Privileged roles manage orders beyond their own purchases.
func (r Role) Privileged() bool {
	switch r {
	case RoleRootAdmin, RoleAdministrator, RoleModerator:
		return true
	default:
		return false
	}
}

// Actor is the authenticated caller. StoreID is nil for global accounts.
type Actor struct {
	UserID  int64
	Email   string
	Role    Role
	StoreID *int64
}

func (a Actor) Valid() bool {
	return a.UserID > 0 && a.Role.Valid()
}

func (a Actor) Bound() bool {
	return a.StoreID != nil
}

// Global reports whether the actor sees and writes every store.
func (a Actor) Global() bool {
	switch a.Role {
	case RoleRootAdmin:
		return true
	case RoleAdministrator:
		return a.StoreID == nil
	default:
		return false
	}
}

func (a Actor) InStore(storeID *int64) bool {
	return a.StoreID != nil && storeID != nil && *a.StoreID == *storeID
}

func (a Actor) OwnsEmail(email string) bool {
	return strings.EqualFold(strings.TrimSpace(a.Email), strings.TrimSpace(email))
}
