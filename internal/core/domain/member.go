package domain

import "time"

// Role defines what a member may do with a fence.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// CanEdit reports whether the role allows mutating the fence.
func (r Role) CanEdit() bool {
	return r == RoleOwner || r == RoleEditor
}

// Member links a user to a fence with a role. The creating user is the
// initial owner; the last owner of a fence cannot be removed.
type Member struct {
	FenceID string    `json:"fence_id" db:"fence_id"`
	UserID  string    `json:"user_id" db:"user_id"`
	Role    Role      `json:"role" db:"role"`
	AddedAt time.Time `json:"added_at" db:"added_at"`
}

// User is an account in the identity store.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
