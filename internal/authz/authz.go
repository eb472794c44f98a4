// Package authz decides whether an actor may perform an administrative
// action against a target account. Decisions are pure: no store access, no
// ambient state, and no errors. The caller resolves the actor's permission
// set up front and decides how to surface a denial.
package authz

import (
	"github.com/google/uuid"

	"github.com/castellan-hq/castellan/internal/shared"
)

// Action identifies an administrative operation subject to authorization.
type Action string

const (
	ActionViewAny     Action = "users.view_any"
	ActionView        Action = "users.view"
	ActionCreate      Action = "users.create"
	ActionUpdate      Action = "users.update"
	ActionDelete      Action = "users.delete"
	ActionAssignRole  Action = "users.assign_role"
	ActionRemoveRole  Action = "users.remove_role"
	ActionRestore     Action = "users.restore"
	ActionForceDelete Action = "users.force_delete"
)

// rule is the required permission for an action plus whether the action is
// denied when actor and target are the same account.
type rule struct {
	permission string
	denySelf   bool
}

// Self-edit and self-delete are blocked unconditionally so an administrator
// cannot lock themselves out or erase their own audit trail through the
// admin surface. Profile self-service goes through a different path.
var rules = map[Action]rule{
	ActionViewAny:     {permission: shared.PermUsersView},
	ActionView:        {permission: shared.PermUsersView},
	ActionCreate:      {permission: shared.PermUsersCreate},
	ActionUpdate:      {permission: shared.PermUsersEdit, denySelf: true},
	ActionDelete:      {permission: shared.PermUsersDelete, denySelf: true},
	ActionAssignRole:  {permission: shared.PermRolesAssign},
	ActionRemoveRole:  {permission: shared.PermRolesAssign},
	ActionRestore:     {permission: shared.PermUsersDelete},
	ActionForceDelete: {permission: shared.PermUsersDelete},
}

// Actor is the authenticated account performing an operation, carrying its
// resolved permission set (the union over all held roles).
type Actor struct {
	ID          uuid.UUID
	permissions map[string]struct{}
}

// NewActor builds an Actor from a resolved permission list.
func NewActor(id uuid.UUID, permissions []string) Actor {
	set := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		set[p] = struct{}{}
	}
	return Actor{ID: id, permissions: set}
}

// Has reports whether the actor holds the named permission.
func (a Actor) Has(permission string) bool {
	_, ok := a.permissions[permission]
	return ok
}

// Permissions returns the actor's resolved permission names.
func (a Actor) Permissions() []string {
	out := make([]string, 0, len(a.permissions))
	for p := range a.permissions {
		out = append(out, p)
	}
	return out
}

// Can evaluates whether the actor may perform action against the target
// account. Unknown actions are denied. Actions without a target (create,
// list) pass uuid.Nil.
func (a Actor) Can(action Action, target uuid.UUID) bool {
	r, ok := rules[action]
	if !ok {
		return false
	}
	if r.denySelf && target != uuid.Nil && a.ID == target {
		return false
	}
	return a.Has(r.permission)
}
