package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/unicode/norm"

	"github.com/castellan-hq/castellan/internal/platform/db"
	"github.com/castellan-hq/castellan/internal/shared"
)

const userColumns = `id, first_name, last_name, phone, email, password_hash, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for accounts and their
// role-membership edges.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new account. A unique-constraint violation on email is
// reported as shared.ErrDuplicateEmail.
func (r *Repository) Create(ctx context.Context, params CreateParams) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, first_name, last_name, phone, email, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		uuid.New(), params.FirstName, params.LastName, params.Phone, params.Email, params.PasswordHash).
		Scan(&user.ID, &user.FirstName, &user.LastName, &user.Phone, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, shared.ErrDuplicateEmail
		}
		return User{}, err
	}
	user.Roles = []string{}
	return user, nil
}

// Get fetches one account with its role memberships.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.FirstName, &user.LastName, &user.Phone, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	roles, err := r.rolesFor(ctx, id)
	if err != nil {
		return User{}, err
	}
	user.Roles = roles
	return user, nil
}

// GetByEmail fetches one account by email, including the stored credential.
func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email).
		Scan(&user.ID, &user.FirstName, &user.LastName, &user.Phone, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	roles, err := r.rolesFor(ctx, user.ID)
	if err != nil {
		return User{}, err
	}
	user.Roles = roles
	return user, nil
}

// List returns accounts matching the filter, newest first, plus the total
// match count for pagination.
func (r *Repository) List(ctx context.Context, filter Filter) ([]User, int, error) {
	search := norm.NFC.String(strings.TrimSpace(filter.Search))
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = shared.DefaultPerPage
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	const where = `
		($1 = '' OR u.first_name ILIKE '%' || $1 || '%' OR u.last_name ILIKE '%' || $1 || '%' OR u.email ILIKE '%' || $1 || '%')
		AND ($2 = '' OR EXISTS (
			SELECT 1 FROM user_roles ur JOIN roles ro ON ro.id = ur.role_id
			WHERE ur.user_id = u.id AND ro.name = $2))`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u WHERE `+where, search, filter.Role).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.first_name, u.last_name, u.phone, u.email, u.password_hash, u.created_at, u.updated_at
		FROM users u
		WHERE `+where+`
		ORDER BY u.created_at DESC
		LIMIT $3 OFFSET $4`,
		search, filter.Role, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Phone, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, 0, err
		}
		user.Roles = []string{}
		list = append(list, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.fillRoles(ctx, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Update applies only the supplied fields and returns the post-update row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (User, error) {
	set := make([]string, 0, 6)
	args := make([]any, 0, 6)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if params.FirstName != nil {
		add("first_name", *params.FirstName)
	}
	if params.LastName != nil {
		add("last_name", *params.LastName)
	}
	if params.Phone != nil {
		add("phone", *params.Phone)
	}
	if params.Email != nil {
		add("email", *params.Email)
	}
	if params.PasswordHash != nil {
		add("password_hash", *params.PasswordHash)
	}
	set = append(set, "updated_at = NOW()")
	args = append(args, id)

	var user User
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`, strings.Join(set, ", "), len(args), userColumns),
		args...).
		Scan(&user.ID, &user.FirstName, &user.LastName, &user.Phone, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		if isUniqueViolation(err) {
			return User{}, shared.ErrDuplicateEmail
		}
		return User{}, err
	}
	roles, err := r.rolesFor(ctx, id)
	if err != nil {
		return User{}, err
	}
	user.Roles = roles
	return user, nil
}

// Delete removes the account. It returns shared.ErrNotFound when no row
// matches, and (false, nil) when the store rejected the removal for a
// non-exceptional reason such as a restricting reference.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, nil
		}
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, shared.ErrNotFound
	}
	return true, nil
}

// AttachRole adds a role membership. Attaching an already-held role is a
// no-op. An unknown account surfaces as shared.ErrNotFound.
func (r *Repository) AttachRole(ctx context.Context, accountID uuid.UUID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, accountID, roleID)
	if err != nil && isForeignKeyViolation(err) {
		return shared.ErrNotFound
	}
	return err
}

// DetachRole removes a role membership. Detaching a never-held role is a
// no-op.
func (r *Repository) DetachRole(ctx context.Context, accountID uuid.UUID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, accountID, roleID)
	return err
}

// ReplaceRoles sets the account's role memberships to exactly the given
// set; an empty set clears all roles. The swap is transactional so a
// partially replaced set is never observable.
func (r *Repository) ReplaceRoles(ctx context.Context, accountID uuid.UUID, roleIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, accountID); err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, accountID, roleID); err != nil {
				if isForeignKeyViolation(err) {
					return shared.ErrNotFound
				}
				return err
			}
		}
		return nil
	})
}

func (r *Repository) rolesFor(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ro.name
		FROM user_roles ur JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY ro.name`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

func (r *Repository) fillRoles(ctx context.Context, list []User) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(list))
	index := make(map[uuid.UUID]int, len(list))
	for i, user := range list {
		ids[i] = user.ID
		index[user.ID] = i
	}
	rows, err := r.pool.Query(ctx, `
		SELECT ur.user_id, ro.name
		FROM user_roles ur JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = ANY($1)
		ORDER BY ro.name`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var accountID uuid.UUID
		var name string
		if err := rows.Scan(&accountID, &name); err != nil {
			return err
		}
		if i, ok := index[accountID]; ok {
			list[i].Roles = append(list[i].Roles, name)
		}
	}
	return rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
