package role

import "strings"

const (
	Admin = "admin"
	User  = "user"
)

type Role struct {
	ID  int64  `json:"id"`
	Nom string `json:"nom"`
}

// Normalize is the stored form of a role name. An empty name means the default role.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return User
	}
	return n
}

// Is is the single role-equality predicate: case and surrounding space are ignored.
func Is(name, want string) bool {
	return strings.EqualFold(strings.TrimSpace(name), want)
}

func IsAdmin(name string) bool {
	return Is(name, Admin)
}

func IsUser(name string) bool {
	return Is(name, User)
}
