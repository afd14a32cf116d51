package domain

// Role is the authorization level of a user
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleStaff      Role = "STAFF"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleStaff:
		return true
	}
	return false
}

// User represents a system user. The password hash never leaves the server.
type User struct {
	UserID       string  `json:"userId" db:"user_id"`
	Name         string  `json:"name" db:"name"`
	Email        string  `json:"email" db:"email"`
	Role         Role    `json:"role" db:"role"`
	PasswordHash string  `json:"-" db:"password"`
	Photo        *string `json:"photo" db:"photo"`
}
