package rbac

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castellan-hq/castellan/internal/shared"
)

type stubRegistryRepo struct {
	permissions  map[uuid.UUID][]string
	roleNames    map[uuid.UUID][]string
	roles        map[string]Role
	resolveCalls int
}

func (s *stubRegistryRepo) ListRoles(ctx context.Context) ([]Role, error) {
	roles := make([]Role, 0, len(s.roles))
	for _, role := range s.roles {
		roles = append(roles, role)
	}
	return roles, nil
}

func (s *stubRegistryRepo) GetRoleByName(ctx context.Context, name string) (Role, error) {
	role, ok := s.roles[name]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (s *stubRegistryRepo) GetRoleByID(ctx context.Context, id int64) (Role, error) {
	for _, role := range s.roles {
		if role.ID == id {
			return role, nil
		}
	}
	return Role{}, shared.ErrNotFound
}

func (s *stubRegistryRepo) RoleExists(ctx context.Context, name string) (bool, error) {
	_, ok := s.roles[name]
	return ok, nil
}

func (s *stubRegistryRepo) ListPermissions(ctx context.Context) ([]Permission, error) {
	return nil, nil
}

func (s *stubRegistryRepo) ResolvePermissions(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	s.resolveCalls++
	return s.permissions[accountID], nil
}

func (s *stubRegistryRepo) RoleNames(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	names, ok := s.roleNames[accountID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return names, nil
}

func newCacheForTest(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestResolvePermissionsCaches(t *testing.T) {
	accountID := uuid.New()
	repo := &stubRegistryRepo{
		permissions: map[uuid.UUID][]string{
			accountID: {shared.PermUsersView, shared.PermUsersEdit},
		},
	}
	svc := NewService(repo, newCacheForTest(t), nil)

	first, err := svc.ResolvePermissions(context.Background(), accountID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{shared.PermUsersView, shared.PermUsersEdit}, first)

	second, err := svc.ResolvePermissions(context.Background(), accountID)
	require.NoError(t, err)
	assert.ElementsMatch(t, first, second)
	assert.Equal(t, 1, repo.resolveCalls, "second read should come from cache")
}

func TestInvalidatePermissionsForcesReRead(t *testing.T) {
	accountID := uuid.New()
	repo := &stubRegistryRepo{
		permissions: map[uuid.UUID][]string{accountID: {shared.PermUsersView}},
	}
	svc := NewService(repo, newCacheForTest(t), nil)
	ctx := context.Background()

	_, err := svc.ResolvePermissions(ctx, accountID)
	require.NoError(t, err)

	// Simulate a role-membership write followed by invalidation.
	repo.permissions[accountID] = []string{shared.PermUsersView, shared.PermRolesAssign}
	svc.InvalidatePermissions(ctx, accountID)

	names, err := svc.ResolvePermissions(ctx, accountID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{shared.PermUsersView, shared.PermRolesAssign}, names)
	assert.Equal(t, 2, repo.resolveCalls)
}

func TestResolvePermissionsWithoutCache(t *testing.T) {
	accountID := uuid.New()
	repo := &stubRegistryRepo{permissions: map[uuid.UUID][]string{}}
	svc := NewService(repo, NewCache(nil), nil)

	names, err := svc.ResolvePermissions(context.Background(), accountID)
	require.NoError(t, err)
	assert.Empty(t, names, "account with no roles resolves to an empty set")
}

func TestRoleNamesPermissiveMiss(t *testing.T) {
	repo := &stubRegistryRepo{roleNames: map[uuid.UUID][]string{}}
	svc := NewService(repo, NewCache(nil), nil)

	names, err := svc.RoleNames(context.Background(), uuid.New())
	require.NoError(t, err, "unknown account must not be an error")
	assert.Empty(t, names)
}

func TestRoleExists(t *testing.T) {
	repo := &stubRegistryRepo{roles: map[string]Role{"admin": {ID: 1, Name: "admin"}}}
	svc := NewService(repo, NewCache(nil), nil)

	ok, err := svc.RoleExists(context.Background(), "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.RoleExists(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}
