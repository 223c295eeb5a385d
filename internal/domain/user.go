package domain

import "time"

// Role enumerates helpdesk roles.
type Role string

const (
	RoleStudent   Role = "student"
	RoleDisposisi Role = "disposisi"
	RoleAdmin     Role = "admin"
)

// ValidRole reports whether the value is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleDisposisi, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// User is collaborator data consumed for recipient resolution and
// credential verification; account management itself lives elsewhere.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor returns the actor view of the user.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
