package users

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/castellan-hq/castellan/internal/audit"
	"github.com/castellan-hq/castellan/internal/authz"
	"github.com/castellan-hq/castellan/internal/rbac"
	"github.com/castellan-hq/castellan/internal/shared"
)

// StorePort defines account persistence used by the service.
type StorePort interface {
	Create(ctx context.Context, params CreateParams) (User, error)
	Get(ctx context.Context, id uuid.UUID) (User, error)
	List(ctx context.Context, filter Filter) ([]User, int, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) (User, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	AttachRole(ctx context.Context, accountID uuid.UUID, roleID int64) error
	DetachRole(ctx context.Context, accountID uuid.UUID, roleID int64) error
	ReplaceRoles(ctx context.Context, accountID uuid.UUID, roleIDs []int64) error
}

// RegistryPort defines the role-permission registry reads used by the
// service, plus cache invalidation after role-membership writes.
type RegistryPort interface {
	RoleByName(ctx context.Context, name string) (rbac.Role, error)
	RoleByID(ctx context.Context, id int64) (rbac.Role, error)
	ResolvePermissions(ctx context.Context, accountID uuid.UUID) ([]string, error)
	InvalidatePermissions(ctx context.Context, accountID uuid.UUID)
}

// ListResult bundles one page of accounts with pagination metadata.
type ListResult struct {
	Users      []User
	Pagination shared.Pagination
}

// CreateInput carries validated fields for a new account. Roles is a
// three-state signal: nil leaves the account without roles, a list (even
// empty) is applied via role replacement.
type CreateInput struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Password  string
	Roles     *[]string
}

// UpdateInput carries a partial field set. Nil fields are untouched. An
// empty password leaves the stored credential intact. Roles nil preserves
// the existing role set; an empty list clears it.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Email     *string
	Password  *string
	Roles     *[]string
}

// Service orchestrates administrative account operations: it authorizes the
// actor, delegates to the store, emits audit events, and returns refreshed
// state. Every operation takes the actor explicitly; there is no ambient
// current-user state below the HTTP boundary.
type Service struct {
	store    StorePort
	registry RegistryPort
	audit    *audit.Recorder
	logger   *slog.Logger
}

// NewService builds a Service.
func NewService(store StorePort, registry RegistryPort, recorder *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, registry: registry, audit: recorder, logger: logger}
}

// List returns accounts matching the filter.
func (s *Service) List(ctx context.Context, actor authz.Actor, filter Filter) (ListResult, error) {
	if !actor.Can(authz.ActionViewAny, uuid.Nil) {
		return ListResult{}, shared.ErrForbidden
	}
	list, total, err := s.store.List(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{
		Users:      list,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	}, nil
}

// Get returns one account with roles and its resolved permission set.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (Detail, error) {
	if !actor.Can(authz.ActionView, id) {
		return Detail{}, shared.ErrForbidden
	}
	user, err := s.store.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	permissions, err := s.registry.ResolvePermissions(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{User: user, Permissions: permissions}, nil
}

// Create persists a new account and optionally applies an initial role set.
func (s *Service) Create(ctx context.Context, actor authz.Actor, input CreateInput) (User, error) {
	if !actor.Can(authz.ActionCreate, uuid.Nil) {
		return User{}, shared.ErrForbidden
	}
	hash, err := shared.HashPassword(input.Password)
	if err != nil {
		return User{}, err
	}
	user, err := s.store.Create(ctx, CreateParams{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Email:        input.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return User{}, err
	}
	s.audit.Info(ctx, "user created", map[string]any{
		"user_id":    user.ID.String(),
		"email":      user.Email,
		"name":       user.Name(),
		"created_by": actor.ID.String(),
	})
	if input.Roles != nil {
		if err := s.syncRoles(ctx, user.ID, *input.Roles); err != nil {
			return User{}, err
		}
	}
	return s.store.Get(ctx, user.ID)
}

// Update applies a partial field set and returns the refreshed account. The
// audit event carries a per-field change diff against the current values.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (User, error) {
	if !actor.Can(authz.ActionUpdate, id) {
		return User{}, shared.ErrForbidden
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return User{}, err
	}

	params := UpdateParams{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		Email:     input.Email,
	}
	passwordChanged := input.Password != nil && *input.Password != ""
	if passwordChanged {
		hash, err := shared.HashPassword(*input.Password)
		if err != nil {
			return User{}, err
		}
		params.PasswordHash = &hash
	}

	updated, err := s.store.Update(ctx, id, params)
	if err != nil {
		return User{}, err
	}
	s.audit.Info(ctx, "user updated", map[string]any{
		"user_id":    id.String(),
		"email":      updated.Email,
		"updated_by": actor.ID.String(),
		"changes": map[string]bool{
			"first_name": input.FirstName != nil && *input.FirstName != current.FirstName,
			"last_name":  input.LastName != nil && *input.LastName != current.LastName,
			"phone":      input.Phone != nil && *input.Phone != current.Phone,
			"email":      input.Email != nil && *input.Email != current.Email,
			"password":   passwordChanged,
		},
	})

	if input.Roles != nil {
		if err := s.syncRoles(ctx, id, *input.Roles); err != nil {
			return User{}, err
		}
	}
	return s.store.Get(ctx, id)
}

// Delete removes the account. Deletion is destructive and irreversible, so
// a warning-severity audit event precedes it; the outcome event follows the
// store's boolean result.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) (bool, error) {
	if !actor.Can(authz.ActionDelete, id) {
		return false, shared.ErrForbidden
	}
	target, err := s.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	s.audit.Warning(ctx, "deleting user", map[string]any{
		"user_id":    id.String(),
		"email":      target.Email,
		"name":       target.Name(),
		"deleted_by": actor.ID.String(),
	})
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		s.audit.Info(ctx, "user deleted", map[string]any{
			"user_id": id.String(),
			"email":   target.Email,
		})
		s.registry.InvalidatePermissions(ctx, id)
	} else {
		s.audit.Error(ctx, "user delete failed", map[string]any{
			"user_id": id.String(),
			"email":   target.Email,
		})
	}
	return ok, nil
}

// AssignRole adds a role to the account and returns the refreshed account.
// Re-assigning a held role is a successful no-op.
func (s *Service) AssignRole(ctx context.Context, actor authz.Actor, id uuid.UUID, ref RoleRef) (User, error) {
	if !actor.Can(authz.ActionAssignRole, id) {
		return User{}, shared.ErrForbidden
	}
	role, err := s.resolveRole(ctx, ref)
	if err != nil {
		return User{}, err
	}
	s.audit.Info(ctx, "assigning role", map[string]any{
		"user_id":     id.String(),
		"role":        role.Name,
		"assigned_by": actor.ID.String(),
	})
	if err := s.store.AttachRole(ctx, id, role.ID); err != nil {
		return User{}, err
	}
	s.registry.InvalidatePermissions(ctx, id)
	s.audit.Info(ctx, "role assigned", map[string]any{
		"user_id": id.String(),
		"role":    role.Name,
	})
	return s.store.Get(ctx, id)
}

// RemoveRole removes a role from the account and returns the refreshed
// account. Removing a never-held role is a successful no-op.
func (s *Service) RemoveRole(ctx context.Context, actor authz.Actor, id uuid.UUID, ref RoleRef) (User, error) {
	if !actor.Can(authz.ActionRemoveRole, id) {
		return User{}, shared.ErrForbidden
	}
	role, err := s.resolveRole(ctx, ref)
	if err != nil {
		return User{}, err
	}
	s.audit.Info(ctx, "removing role", map[string]any{
		"user_id":    id.String(),
		"role":       role.Name,
		"removed_by": actor.ID.String(),
	})
	if err := s.store.DetachRole(ctx, id, role.ID); err != nil {
		return User{}, err
	}
	s.registry.InvalidatePermissions(ctx, id)
	s.audit.Info(ctx, "role removed", map[string]any{
		"user_id": id.String(),
		"role":    role.Name,
	})
	return s.store.Get(ctx, id)
}

// resolveRole normalizes a RoleRef to its canonical role definition.
func (s *Service) resolveRole(ctx context.Context, ref RoleRef) (rbac.Role, error) {
	if ref.byID {
		return s.registry.RoleByID(ctx, ref.id)
	}
	return s.registry.RoleByName(ctx, ref.name)
}

// syncRoles replaces the account's role set with exactly the named roles.
func (s *Service) syncRoles(ctx context.Context, id uuid.UUID, names []string) error {
	roleIDs := make([]int64, 0, len(names))
	for _, name := range names {
		role, err := s.registry.RoleByName(ctx, name)
		if err != nil {
			return err
		}
		roleIDs = append(roleIDs, role.ID)
	}
	if err := s.store.ReplaceRoles(ctx, id, roleIDs); err != nil {
		return err
	}
	s.registry.InvalidatePermissions(ctx, id)
	s.audit.Info(ctx, "roles replaced", map[string]any{
		"user_id": id.String(),
		"roles":   names,
	})
	return nil
}
