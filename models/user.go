package models

import "time"

// Role is the resolved role of a principal as supplied by the identity
// collaborator. The engine never authenticates; it only consumes roles.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// User mirrors the user directory entries the engine needs for ownership
// checks and denormalized author-name snapshots.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"size:64;not null" json:"username"`
	DisplayName string    `gorm:"size:64" json:"display_name"`
	Role        Role      `gorm:"size:16;default:'user'" json:"role"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
