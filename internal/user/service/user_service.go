// Package service implements user account management: registration-side
// creation, profile updates, and password changes.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"auth-control-plane/backend/internal/security"
	"auth-control-plane/backend/internal/user/domain"
	"auth-control-plane/backend/internal/user/repository"
)

// Sentinel errors for user operations; the request layer maps them to HTTP codes.
var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrUserNotFound  = errors.New("user not found")
	ErrWrongPassword = errors.New("current password is incorrect")
)

// UserService manages user accounts. Users are never hard-deleted here;
// removal is an external concern.
type UserService struct {
	repo   repository.Repository
	hasher *security.Hasher
}

// NewUserService returns a UserService backed by the given repository and hasher.
func NewUserService(repo repository.Repository, hasher *security.Hasher) *UserService {
	return &UserService{repo: repo, hasher: hasher}
}

// CreateInput holds the fields for creating a user.
type CreateInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	RoleID    string
}

// Create registers a new user with a hashed password. Fails with
// ErrEmailTaken when the email is already registered.
func (s *UserService) Create(ctx context.Context, in CreateInput) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}
	hashed, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashed,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		RoleID:       in.RoleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns the user for id, or ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetByEmail returns the user for email, or nil when absent. Login uses this
// directly so that a missing user and a wrong password take the same path.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
}

// List returns all users, newest first.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.repo.List(ctx)
}

// UpdateInput holds the mutable profile fields; nil pointers leave the field unchanged.
type UpdateInput struct {
	FirstName *string
	LastName  *string
}

// Update applies in to the user identified by id.
func (s *UserService) Update(ctx context.Context, id string, in UpdateInput) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AssignRole sets the user's role reference.
func (s *UserService) AssignRole(ctx context.Context, id, roleID string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	user.RoleID = roleID
	return s.repo.Update(ctx, user)
}

// ChangePassword verifies the current password and stores a hash of the new
// one. Fails with ErrWrongPassword when the current password does not verify.
func (s *UserService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(currentPassword)); err != nil {
		return ErrWrongPassword
	}
	hashed, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, hashed)
}
