package repository

import (
	"context"
	"time"

	"auth-control-plane/backend/internal/session/domain"
)

// Repository defines persistence for sessions. Expiry is passive: reads
// exclude rows whose expires_at has passed, and nothing deletes them eagerly.
type Repository interface {
	// GetByID returns the non-expired session for id, or nil if absent.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// GetByRefreshTokenHash returns the non-expired session holding the hash, or nil.
	GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	// ListActiveByUser returns the user's non-expired sessions, newest activity first.
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// CreateEvicting inserts s, first deleting the least-recently-active
	// session(s) if the user already holds maxSessions non-expired ones. The
	// whole sequence runs in one transaction with a row lock on the user, so
	// concurrent logins cannot push the count above the cap.
	CreateEvicting(ctx context.Context, s *domain.Session, maxSessions int) error
	UpdateRefreshTokenHash(ctx context.Context, id, hash string) error
	TouchActivity(ctx context.Context, id string, at time.Time) error
	// Delete removes the session and reports whether a row existed.
	Delete(ctx context.Context, id string) (bool, error)
	DeleteAllByUser(ctx context.Context, userID string) error
	DeleteOthers(ctx context.Context, keepID, userID string) error
}
