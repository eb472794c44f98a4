package shared

// Permission names seeded at bootstrap. The registry owns the definitions;
// these constants keep call sites free of raw strings.
const (
	PermUsersView   = "view users"
	PermUsersCreate = "create users"
	PermUsersEdit   = "edit users"
	PermUsersDelete = "delete users"
	PermRolesAssign = "assign roles"
)

// UserManagementScopes lists all permissions governing user management.
func UserManagementScopes() []string {
	return []string{
		PermUsersView,
		PermUsersCreate,
		PermUsersEdit,
		PermUsersDelete,
		PermRolesAssign,
	}
}
