// Package rbac implements per-operation role checks. Required roles are
// declared as an explicit operation → role-set table by the request layer;
// the guard resolves the caller's role from storage on every check.
package rbac

import (
	"context"
	"errors"

	roledomain "auth-control-plane/backend/internal/role/domain"
	userdomain "auth-control-plane/backend/internal/user/domain"
)

// Sentinel errors for authorization checks; the request layer maps both to 403.
var (
	ErrForbidden      = errors.New("insufficient permissions")
	ErrNoRoleAssigned = errors.New("user does not have a role assigned")
)

// UserGetter resolves a user by id. A nil user means the user does not exist.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// RoleGetter resolves a role by id. A nil role means the role does not exist.
type RoleGetter interface {
	GetByID(ctx context.Context, id string) (*roledomain.Role, error)
}

// Guard evaluates role requirements per operation. No caching: every check
// re-reads the store so role changes and soft-deletes take effect on the
// next request, including across instances.
type Guard struct {
	users    UserGetter
	roles    RoleGetter
	required map[string][]string
}

// NewGuard returns a Guard over the given operation → required-roles table.
// Operations absent from the table require authentication only.
func NewGuard(users UserGetter, roles RoleGetter, required map[string][]string) *Guard {
	if required == nil {
		required = map[string][]string{}
	}
	return &Guard{users: users, roles: roles, required: required}
}

// RequiredRoles returns the role names declared for operation; empty means
// any authenticated user may perform it.
func (g *Guard) RequiredRoles(operation string) []string {
	return g.required[operation]
}

// Authorize checks whether userID may perform operation. With no declared
// roles it allows (authentication alone suffices). A user without a role, or
// whose role is inactive, fails with ErrNoRoleAssigned; a role outside the
// required set fails with ErrForbidden. Any ambiguity fails closed.
func (g *Guard) Authorize(ctx context.Context, userID, operation string) error {
	required := g.required[operation]
	if len(required) == 0 {
		return nil
	}
	if userID == "" {
		return ErrForbidden
	}
	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrForbidden
	}
	role, err := g.resolveRole(ctx, user)
	if err != nil {
		return err
	}
	if role == nil {
		return ErrNoRoleAssigned
	}
	for _, name := range required {
		if role.Name == name {
			return nil
		}
	}
	return ErrForbidden
}

// resolveRole loads the user's role. Inactive roles count as no role.
func (g *Guard) resolveRole(ctx context.Context, user *userdomain.User) (*roledomain.Role, error) {
	if user.RoleID == "" {
		return nil, nil
	}
	role, err := g.roles.GetByID(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}
	if role == nil || !role.IsActive {
		return nil, nil
	}
	return role, nil
}
