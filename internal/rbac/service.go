package rbac

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/castellan-hq/castellan/internal/shared"
)

// RepositoryPort defines registry data access used by the service.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	GetRoleByID(ctx context.Context, id int64) (Role, error)
	RoleExists(ctx context.Context, name string) (bool, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	ResolvePermissions(ctx context.Context, accountID uuid.UUID) ([]string, error)
	RoleNames(ctx context.Context, accountID uuid.UUID) ([]string, error)
}

// Service is the role-permission registry: roles and permissions are seeded
// at bootstrap and read frequently afterwards.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	logger *slog.Logger
}

// NewService builds a Service. The cache may be nil.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// ResolvePermissions returns the union of permissions granted by all roles
// held by the account. Cache failures degrade to a registry read.
func (s *Service) ResolvePermissions(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	if names, ok := s.cache.Get(ctx, accountID); ok {
		return names, nil
	}
	names, err := s.repo.ResolvePermissions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, accountID, names); err != nil {
		s.logger.Warn("permission cache set", slog.Any("error", err))
	}
	return names, nil
}

// InvalidatePermissions drops the cached permission set after a
// role-membership write.
func (s *Service) InvalidatePermissions(ctx context.Context, accountID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, accountID); err != nil {
		s.logger.Warn("permission cache invalidate", slog.Any("error", err))
	}
}

// RoleExists reports whether the named role is defined.
func (s *Service) RoleExists(ctx context.Context, name string) (bool, error) {
	return s.repo.RoleExists(ctx, name)
}

// RoleByName fetches a role definition by name.
func (s *Service) RoleByName(ctx context.Context, name string) (Role, error) {
	return s.repo.GetRoleByName(ctx, name)
}

// RoleByID fetches a role definition by identifier.
func (s *Service) RoleByID(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRoleByID(ctx, id)
}

// RoleNames returns the role names held by the account. A missing account
// resolves to an empty set rather than an error (permissive miss).
func (s *Service) RoleNames(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	names, err := s.repo.RoleNames(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return names, nil
}

// ListRoles returns all defined roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// ListPermissions returns all defined permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}
