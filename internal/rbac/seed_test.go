package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castellan-hq/castellan/internal/shared"
)

type fakeSeeder struct {
	nextID      int64
	permissions map[string]Permission
	roles       map[string]Role
	grants      map[int64][]int64
}

func newFakeSeeder() *fakeSeeder {
	return &fakeSeeder{
		permissions: make(map[string]Permission),
		roles:       make(map[string]Role),
		grants:      make(map[int64][]int64),
	}
}

func (f *fakeSeeder) EnsurePermission(ctx context.Context, name, description string) (Permission, error) {
	if perm, ok := f.permissions[name]; ok {
		perm.Description = description
		f.permissions[name] = perm
		return perm, nil
	}
	f.nextID++
	perm := Permission{ID: f.nextID, Name: name, Description: description}
	f.permissions[name] = perm
	return perm, nil
}

func (f *fakeSeeder) EnsureRole(ctx context.Context, name, description string) (Role, error) {
	if role, ok := f.roles[name]; ok {
		role.Description = description
		f.roles[name] = role
		return role, nil
	}
	f.nextID++
	role := Role{ID: f.nextID, Name: name, Description: description}
	f.roles[name] = role
	return role, nil
}

func (f *fakeSeeder) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	for _, existing := range f.grants[roleID] {
		if existing == permissionID {
			return nil
		}
	}
	f.grants[roleID] = append(f.grants[roleID], permissionID)
	return nil
}

func TestSeedInstallsDefaults(t *testing.T) {
	seeder := newFakeSeeder()
	require.NoError(t, Seed(context.Background(), seeder))

	for _, name := range shared.UserManagementScopes() {
		assert.Contains(t, seeder.permissions, name)
	}
	for _, name := range []string{"super-admin", "admin", "manager", "user"} {
		assert.Contains(t, seeder.roles, name)
	}

	admin := seeder.roles["admin"]
	assert.Len(t, seeder.grants[admin.ID], len(shared.UserManagementScopes()))

	manager := seeder.roles["manager"]
	assert.Len(t, seeder.grants[manager.ID], 1)

	user := seeder.roles["user"]
	assert.Empty(t, seeder.grants[user.ID])
}

func TestSeedIsIdempotent(t *testing.T) {
	seeder := newFakeSeeder()
	require.NoError(t, Seed(context.Background(), seeder))
	require.NoError(t, Seed(context.Background(), seeder))

	admin := seeder.roles["admin"]
	assert.Len(t, seeder.grants[admin.ID], len(shared.UserManagementScopes()))
	assert.Len(t, seeder.permissions, len(shared.UserManagementScopes()))
}
