package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"auth-control-plane/backend/internal/db"
	"auth-control-plane/backend/internal/role/domain"
)

const roleColumns = `id, name, display_name, description, is_active, created_at, updated_at`

// PostgresRepository implements Repository using Postgres via pgx.
type PostgresRepository struct {
	pool db.Pool
}

// NewPostgresRepository returns a role repository that uses the given pool for persistence.
func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetByID returns the role for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	return scanRole(row)
}

// GetByName returns the role with the given name, or nil if not found.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name)
	return scanRole(row)
}

// ListActive returns all active roles, oldest first.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*domain.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles WHERE is_active ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create persists the role. The role must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, role *domain.Role) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO roles (id, name, display_name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, role.ID, role.Name, role.DisplayName, nullString(role.Description),
		role.IsActive, role.CreatedAt, role.UpdatedAt)
	return err
}

// Update updates the role's mutable fields, including the soft-delete flag.
func (r *PostgresRepository) Update(ctx context.Context, role *domain.Role) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE roles
		SET name = $2, display_name = $3, description = $4, is_active = $5, updated_at = $6
		WHERE id = $1
	`, role.ID, role.Name, role.DisplayName, nullString(role.Description),
		role.IsActive, time.Now().UTC())
	return err
}

func scanRole(row pgx.Row) (*domain.Role, error) {
	var role domain.Role
	var description *string
	err := row.Scan(&role.ID, &role.Name, &role.DisplayName, &description,
		&role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if description != nil {
		role.Description = *description
	}
	return &role, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
