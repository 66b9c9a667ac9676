package domain

import (
	"errors"
	"time"
)

// User is the core user entity. PasswordHash is a bcrypt digest; the
// plaintext password never leaves the auth flow. RoleID is nullable: deleting
// a role clears the reference, it never deletes users.
type User struct {
	ID              string
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	IsEmailVerified bool
	Blocked         bool
	RoleID          string // empty when no role is assigned
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}
