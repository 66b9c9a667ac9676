// Package service implements role management: CRUD with soft deletion and
// idempotent seeding of the bootstrap role set.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"auth-control-plane/backend/internal/role/domain"
	"auth-control-plane/backend/internal/role/repository"
)

// Sentinel errors for role operations; the request layer maps them to HTTP codes.
var (
	ErrRoleNotFound = errors.New("role not found")
	ErrRoleExists   = errors.New("role already exists")
)

// RoleService manages roles. Roles are never hard-deleted; Remove flips
// is_active off and role references on users stay intact.
type RoleService struct {
	repo repository.Repository
}

// NewRoleService returns a RoleService backed by the given repository.
func NewRoleService(repo repository.Repository) *RoleService {
	return &RoleService{repo: repo}
}

// ListActive returns all active roles, oldest first.
func (s *RoleService) ListActive(ctx context.Context) ([]*domain.Role, error) {
	return s.repo.ListActive(ctx)
}

// FindByName returns the active role with the given name, or nil when absent
// or inactive.
func (s *RoleService) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	role, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if role == nil || !role.IsActive {
		return nil, nil
	}
	return role, nil
}

// Get returns the role for id, or ErrRoleNotFound.
func (s *RoleService) Get(ctx context.Context, id string) (*domain.Role, error) {
	role, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

// CreateInput holds the fields for creating a role.
type CreateInput struct {
	Name        string
	DisplayName string
	Description string
}

// Create adds a new active role. Fails with ErrRoleExists when a role with
// the same name exists, active or not.
func (s *RoleService) Create(ctx context.Context, in CreateInput) (*domain.Role, error) {
	existing, err := s.repo.GetByName(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrRoleExists
	}
	now := time.Now().UTC()
	role := &domain.Role{
		ID:          uuid.New().String(),
		Name:        in.Name,
		DisplayName: in.DisplayName,
		Description: in.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := role.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// UpdateInput holds the mutable role fields; nil pointers leave the field unchanged.
type UpdateInput struct {
	DisplayName *string
	Description *string
	IsActive    *bool
}

// Update applies in to the role identified by id.
func (s *RoleService) Update(ctx context.Context, id string, in UpdateInput) (*domain.Role, error) {
	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.DisplayName != nil {
		role.DisplayName = *in.DisplayName
	}
	if in.Description != nil {
		role.Description = *in.Description
	}
	if in.IsActive != nil {
		role.IsActive = *in.IsActive
	}
	if err := role.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// Remove soft-deletes the role by marking it inactive. Users keep their
// role_id; an inactive role is simply treated as no role during checks.
func (s *RoleService) Remove(ctx context.Context, id string) error {
	role, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	role.IsActive = false
	return s.repo.Update(ctx, role)
}

// SeedDefaults creates the bootstrap roles (admin, moderator, user) if they
// are missing. Idempotent: existing roles are left untouched. Called at
// startup before the server accepts traffic.
func (s *RoleService) SeedDefaults(ctx context.Context) error {
	defaults := []CreateInput{
		{Name: domain.NameAdmin, DisplayName: "Administrator", Description: "Full access"},
		{Name: domain.NameModerator, DisplayName: "Moderator", Description: "Content management, user overview"},
		{Name: domain.NameUser, DisplayName: "User", Description: "Base permissions"},
	}
	for _, in := range defaults {
		existing, err := s.repo.GetByName(ctx, in.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := s.Create(ctx, in); err != nil && !errors.Is(err, ErrRoleExists) {
			return err
		}
	}
	return nil
}
