package authz

import (
	"testing"

	"github.com/google/uuid"

	"github.com/castellan-hq/castellan/internal/shared"
)

func TestActionRules(t *testing.T) {
	actorID := uuid.New()
	otherID := uuid.New()

	cases := []struct {
		name        string
		permissions []string
		action      Action
		target      uuid.UUID
		want        bool
	}{
		{"view any with view users", []string{shared.PermUsersView}, ActionViewAny, uuid.Nil, true},
		{"view any without view users", []string{shared.PermUsersCreate}, ActionViewAny, uuid.Nil, false},
		{"view one with view users", []string{shared.PermUsersView}, ActionView, otherID, true},
		{"create with create users", []string{shared.PermUsersCreate}, ActionCreate, uuid.Nil, true},
		{"create with only view users", []string{shared.PermUsersView}, ActionCreate, uuid.Nil, false},
		{"update other with edit users", []string{shared.PermUsersEdit}, ActionUpdate, otherID, true},
		{"update without edit users", []string{shared.PermUsersView}, ActionUpdate, otherID, false},
		{"delete other with delete users", []string{shared.PermUsersDelete}, ActionDelete, otherID, true},
		{"assign role with assign roles", []string{shared.PermRolesAssign}, ActionAssignRole, otherID, true},
		{"remove role uses the assign permission", []string{shared.PermRolesAssign}, ActionRemoveRole, otherID, true},
		{"remove role without assign roles", []string{shared.PermUsersEdit}, ActionRemoveRole, otherID, false},
		{"restore with delete users", []string{shared.PermUsersDelete}, ActionRestore, otherID, true},
		{"force delete with delete users", []string{shared.PermUsersDelete}, ActionForceDelete, otherID, true},
		{"unknown action denied", shared.UserManagementScopes(), Action("users.impersonate"), otherID, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actor := NewActor(actorID, tc.permissions)
			if got := actor.Can(tc.action, tc.target); got != tc.want {
				t.Fatalf("Can(%s) = %v, want %v", tc.action, got, tc.want)
			}
		})
	}
}

func TestSelfActionsAlwaysDenied(t *testing.T) {
	actorID := uuid.New()
	// Full permission set: self-edit and self-delete must still be denied.
	actor := NewActor(actorID, shared.UserManagementScopes())

	if actor.Can(ActionUpdate, actorID) {
		t.Fatal("self update must be denied regardless of permissions")
	}
	if actor.Can(ActionDelete, actorID) {
		t.Fatal("self delete must be denied regardless of permissions")
	}
	// Non-self actions keep working for the same actor.
	if !actor.Can(ActionUpdate, uuid.New()) {
		t.Fatal("update of another account should be allowed")
	}
	if !actor.Can(ActionView, actorID) {
		t.Fatal("viewing own account is not a self-denied action")
	}
}

func TestActorWithoutPermissions(t *testing.T) {
	actor := NewActor(uuid.New(), nil)
	for action := range rules {
		if actor.Can(action, uuid.New()) {
			t.Fatalf("action %s allowed for actor without permissions", action)
		}
	}
}
