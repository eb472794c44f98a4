package auth

import (
	"context"
	"errors"

	"github.com/castellan-hq/castellan/internal/shared"
	"github.com/castellan-hq/castellan/internal/users"
)

// AccountsPort looks up accounts for credential checks.
type AccountsPort interface {
	GetByEmail(ctx context.Context, email string) (users.User, error)
}

// Service wraps authentication business rules.
type Service struct {
	accounts AccountsPort
}

// NewService constructs a new Service.
func NewService(accounts AccountsPort) *Service {
	return &Service{accounts: accounts}
}

// Authenticate validates email/password credentials. Lookup misses and
// mismatched credentials are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (users.User, error) {
	user, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return users.User{}, shared.ErrInvalidCredentials
		}
		return users.User{}, err
	}
	if err := shared.VerifyPassword(user.PasswordHash, password); err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}
