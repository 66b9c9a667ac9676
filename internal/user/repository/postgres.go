package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"auth-control-plane/backend/internal/db"
	"auth-control-plane/backend/internal/user/domain"
)

const userColumns = `id, email, password_hash, first_name, last_name, is_email_verified, blocked, role_id, created_at, updated_at`

// PostgresRepository implements Repository using Postgres via pgx.
type PostgresRepository struct {
	pool db.Pool
}

// NewPostgresRepository returns a user repository that uses the given pool for persistence.
func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

// List returns all users, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, is_email_verified, blocked, role_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, u.ID, u.Email, u.PasswordHash, nullString(u.FirstName), nullString(u.LastName),
		u.IsEmailVerified, u.Blocked, nullString(u.RoleID), u.CreatedAt, u.UpdatedAt)
	return err
}

// Update updates the user's mutable fields. The password hash is updated only
// through UpdatePassword.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, is_email_verified = $5, blocked = $6, role_id = $7, updated_at = $8
		WHERE id = $1
	`, u.ID, u.Email, nullString(u.FirstName), nullString(u.LastName),
		u.IsEmailVerified, u.Blocked, nullString(u.RoleID), time.Now().UTC())
	return err
}

// UpdatePassword replaces the user's password hash.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, id, passwordHash, time.Now().UTC())
	return err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var firstName, lastName, roleID *string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &firstName, &lastName,
		&u.IsEmailVerified, &u.Blocked, &roleID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.FirstName = deref(firstName)
	u.LastName = deref(lastName)
	u.RoleID = deref(roleID)
	return &u, nil
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
