// Package service implements the session store: creation under the per-user
// cap, lookup, refresh-token rotation, and termination. All session mutations
// in the system go through this package.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"auth-control-plane/backend/internal/security"
	"auth-control-plane/backend/internal/session/domain"
	"auth-control-plane/backend/internal/session/repository"
)

// Sentinel errors for session operations; the request layer maps them to HTTP codes.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotSessionOwner = errors.New("session belongs to another user")
)

// Store owns session records. It enforces the per-user session cap on
// creation and the ownership check on termination.
type Store struct {
	repo        repository.Repository
	maxSessions int
	sessionTTL  time.Duration
}

// NewStore returns a Store with the given cap and absolute session lifetime.
func NewStore(repo repository.Repository, maxSessions int, sessionTTL time.Duration) *Store {
	return &Store{repo: repo, maxSessions: maxSessions, sessionTTL: sessionTTL}
}

// Create opens a new session for the user with a freshly minted opaque
// refresh token and expires_at = now + sessionTTL. When the user already
// holds the maximum number of non-expired sessions, the least-recently-active
// one is evicted in the same transaction. Returns the session and the raw
// refresh token; only its hash is persisted.
func (s *Store) Create(ctx context.Context, userID string, meta domain.ClientMeta) (*domain.Session, string, error) {
	token, err := security.NewRefreshToken()
	if err != nil {
		return nil, "", err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		ID:               uuid.New().String(),
		UserID:           userID,
		RefreshTokenHash: security.HashRefreshToken(token),
		UserAgent:        meta.UserAgent,
		IPAddress:        meta.IPAddress,
		DeviceInfo:       meta.DeviceInfo,
		Location:         meta.Location,
		ExpiresAt:        now.Add(s.sessionTTL),
		LastActivityAt:   now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.CreateEvicting(ctx, sess, s.maxSessions); err != nil {
		return nil, "", err
	}
	return sess, token, nil
}

// FindByID returns the session, or ErrSessionNotFound when absent or expired.
func (s *Store) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// FindByRefreshToken returns the session bound to the raw refresh token, or
// ErrSessionNotFound when no non-expired session holds it. A rotated-out
// token never matches again: its hash was overwritten on rotation.
func (s *Store) FindByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	sess, err := s.repo.GetByRefreshTokenHash(ctx, security.HashRefreshToken(token))
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// ListActive returns the user's non-expired sessions, newest activity first.
func (s *Store) ListActive(ctx context.Context, userID string) ([]*domain.Session, error) {
	return s.repo.ListActiveByUser(ctx, userID)
}

// RotateRefreshToken mints a new opaque refresh token for the session and
// persists its hash, making the previous token permanently unusable. Returns
// the new raw token.
func (s *Store) RotateRefreshToken(ctx context.Context, sessionID string) (string, error) {
	token, err := security.NewRefreshToken()
	if err != nil {
		return "", err
	}
	if err := s.repo.UpdateRefreshTokenHash(ctx, sessionID, security.HashRefreshToken(token)); err != nil {
		return "", err
	}
	return token, nil
}

// TouchActivity records activity on the session. The absolute expiry is not
// extended.
func (s *Store) TouchActivity(ctx context.Context, sessionID string) error {
	return s.repo.TouchActivity(ctx, sessionID, time.Now().UTC())
}

// Terminate deletes the named session. Fails with ErrSessionNotFound when
// absent or expired, and ErrNotSessionOwner when the session belongs to a
// different user; the session is left untouched in that case.
func (s *Store) Terminate(ctx context.Context, sessionID, requestingUserID string) error {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	if sess.UserID != requestingUserID {
		return ErrNotSessionOwner
	}
	deleted, err := s.repo.Delete(ctx, sessionID)
	if err != nil {
		return err
	}
	if !deleted {
		// Lost a race with another terminate; the session is gone either way.
		return ErrSessionNotFound
	}
	return nil
}

// TerminateAll deletes every session for the user ("log out everywhere").
// Deleting when none exist is a no-op success.
func (s *Store) TerminateAll(ctx context.Context, userID string) error {
	return s.repo.DeleteAllByUser(ctx, userID)
}

// TerminateOthers deletes every session for the user except keepSessionID
// ("log out other devices").
func (s *Store) TerminateOthers(ctx context.Context, keepSessionID, userID string) error {
	return s.repo.DeleteOthers(ctx, keepSessionID, userID)
}
