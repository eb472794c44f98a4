package rbac

import (
	"context"
	"fmt"

	"github.com/castellan-hq/castellan/internal/shared"
)

// Seeder covers the registry writes needed for bootstrap seeding.
type Seeder interface {
	EnsurePermission(ctx context.Context, name, description string) (Permission, error)
	EnsureRole(ctx context.Context, name, description string) (Role, error)
	GrantPermission(ctx context.Context, roleID, permissionID int64) error
}

var seedPermissions = []struct {
	name        string
	description string
}{
	{shared.PermUsersView, "List and view user accounts"},
	{shared.PermUsersCreate, "Create user accounts"},
	{shared.PermUsersEdit, "Edit user accounts"},
	{shared.PermUsersDelete, "Delete user accounts"},
	{shared.PermRolesAssign, "Assign and remove roles"},
}

var seedRoles = []struct {
	name        string
	description string
	grants      []string
}{
	{"super-admin", "Full access to every capability", shared.UserManagementScopes()},
	{"admin", "Manages user accounts and role assignments", shared.UserManagementScopes()},
	{"manager", "Read-only view of user accounts", []string{shared.PermUsersView}},
	{"user", "Basic access without administrative capabilities", nil},
}

// Seed idempotently installs the fixed permission set and default roles.
// Roles and permissions are immutable from the core's perspective after this.
func Seed(ctx context.Context, repo Seeder) error {
	permsByName := make(map[string]Permission, len(seedPermissions))
	for _, p := range seedPermissions {
		perm, err := repo.EnsurePermission(ctx, p.name, p.description)
		if err != nil {
			return err
		}
		permsByName[perm.Name] = perm
	}
	for _, r := range seedRoles {
		role, err := repo.EnsureRole(ctx, r.name, r.description)
		if err != nil {
			return err
		}
		for _, grant := range r.grants {
			perm, ok := permsByName[grant]
			if !ok {
				return fmt.Errorf("rbac: seed references unknown permission %s", grant)
			}
			if err := repo.GrantPermission(ctx, role.ID, perm.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
