package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents a managed user account with its current role memberships.
type User struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	Phone        string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Name returns the display name of the account.
func (u User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasRole reports whether the account currently holds the named role.
func (u User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// Detail is an account enriched with its resolved permission set.
type Detail struct {
	User
	Permissions []string
}

// Filter narrows account listings.
type Filter struct {
	Search  string
	Role    string
	Page    int
	PerPage int
}

// CreateParams are the store-level fields for a new account. The password
// credential must already be hashed; the store never hashes.
type CreateParams struct {
	FirstName    string
	LastName     string
	Phone        string
	Email        string
	PasswordHash string
}

// UpdateParams carry only the fields to change; nil fields are left
// untouched by the store.
type UpdateParams struct {
	FirstName    *string
	LastName     *string
	Phone        *string
	Email        *string
	PasswordHash *string
}

// RoleRef identifies a role either by name or by registry identifier. It is
// resolved to a canonical role at the service boundary before use.
type RoleRef struct {
	name string
	id   int64
	byID bool
}

// RoleByName references a role by its unique name.
func RoleByName(name string) RoleRef {
	return RoleRef{name: name}
}

// RoleByID references a role by its registry identifier.
func RoleByID(id int64) RoleRef {
	return RoleRef{id: id, byID: true}
}
