package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"auth-control-plane/backend/internal/db"
	"auth-control-plane/backend/internal/session/domain"
)

const sessionColumns = `id, user_id, refresh_token_hash, user_agent, ip_address, device_info, location, expires_at, last_activity_at, created_at, updated_at`

// PostgresRepository implements Repository using Postgres via pgx.
type PostgresRepository struct {
	pool db.Pool
}

// NewPostgresRepository returns a session repository that uses the given pool for persistence.
func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetByID returns the non-expired session for id, or nil if absent or expired.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = $1 AND expires_at > now()
	`, id)
	return scanSession(row)
}

// GetByRefreshTokenHash returns the non-expired session holding the refresh
// token hash, or nil if absent or expired.
func (r *PostgresRepository) GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = $1 AND expires_at > now()
	`, hash)
	return scanSession(row)
}

// ListActiveByUser returns the user's non-expired sessions, newest activity
// first; creation time breaks activity ties.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1 AND expires_at > now()
		ORDER BY last_activity_at DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateEvicting inserts s inside a single transaction: it locks the owning
// user row so concurrent logins for the same user serialize, counts the
// non-expired sessions, deletes the least-recently-active ones (oldest
// created_at breaks ties) when the cap would be exceeded, then inserts. Any
// failure, including a failed eviction, rolls the whole transaction back.
func (r *PostgresRepository) CreateEvicting(ctx context.Context, s *domain.Session, maxSessions int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var lockedID string
	if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, s.UserID).Scan(&lockedID); err != nil {
		return err
	}

	var active int
	if err := tx.QueryRow(ctx, `
		SELECT count(*) FROM sessions WHERE user_id = $1 AND expires_at > now()
	`, s.UserID).Scan(&active); err != nil {
		return err
	}

	if active >= maxSessions {
		if _, err := tx.Exec(ctx, `
			DELETE FROM sessions
			WHERE id IN (
				SELECT id FROM sessions
				WHERE user_id = $1 AND expires_at > now()
				ORDER BY last_activity_at ASC, created_at ASC
				LIMIT $2
			)
		`, s.UserID, active-maxSessions+1); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO sessions (id, user_id, refresh_token_hash, user_agent, ip_address, device_info, location, expires_at, last_activity_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, s.ID, s.UserID, s.RefreshTokenHash, nullString(s.UserAgent), nullString(s.IPAddress),
		nullString(s.DeviceInfo), nullString(s.Location), s.ExpiresAt, s.LastActivityAt,
		s.CreatedAt, s.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateRefreshTokenHash sets the session's current refresh token hash for rotation.
func (r *PostgresRepository) UpdateRefreshTokenHash(ctx context.Context, id, hash string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sessions SET refresh_token_hash = $2, updated_at = now() WHERE id = $1
	`, id, hash)
	return err
}

// TouchActivity sets the session's last activity timestamp. The absolute
// expiry is deliberately left alone; refresh never extends a session's life.
func (r *PostgresRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sessions SET last_activity_at = $2, updated_at = now() WHERE id = $1
	`, id, at)
	return err
}

// Delete removes the session and reports whether a row existed.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAllByUser deletes every session for the user. Deleting when none
// exist is a no-op success.
func (r *PostgresRepository) DeleteAllByUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

// DeleteOthers deletes every session for the user except keepID.
func (r *PostgresRepository) DeleteOthers(ctx context.Context, keepID, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1 AND id <> $2`, userID, keepID)
	return err
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	var userAgent, ipAddress, deviceInfo, location *string
	err := row.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &userAgent, &ipAddress,
		&deviceInfo, &location, &s.ExpiresAt, &s.LastActivityAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.UserAgent = deref(userAgent)
	s.IPAddress = deref(ipAddress)
	s.DeviceInfo = deref(deviceInfo)
	s.Location = deref(location)
	return &s, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
