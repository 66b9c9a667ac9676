package domain

import (
	"errors"
	"time"
)

// Role is a named permission bucket. Roles are soft-deleted by flipping
// IsActive; users holding an inactive role are treated as roleless.
type Role struct {
	ID          string
	Name        string
	DisplayName string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Bootstrap role names that must exist before the service accepts traffic.
const (
	NameAdmin     = "admin"
	NameModerator = "moderator"
	NameUser      = "user"
)

// Validate validates the role for persistence.
func (r *Role) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.DisplayName == "" {
		return errors.New("display name is required")
	}
	return nil
}
