package model

import "time"

// Admin is an administrator account as stored in the `admins` table.
// PasswordHash never leaves the repository/auth layers; it is tagged out of
// JSON so an Admin can be returned from list endpoints directly.
type Admin struct {
	ID           uint64    `json:"id"`         // admins.id
	Name         string    `json:"name"`       // admins.name
	Email        string    `json:"email"`      // admins.email
	PasswordHash string    `json:"-"`          // admins.password_hash
	CreatedAt    time.Time `json:"created_at"` // admins.created_at
}
