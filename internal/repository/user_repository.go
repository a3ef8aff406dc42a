package repository

import (
	"context"
	"errors"
	"time"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUniqueViolation maps Postgres error 23505. Callers translate it into
// a domain error appropriate to the conflicting constraint.
var ErrUniqueViolation = errors.New("unique constraint violation")

type UserRepository interface {
	Create(ctx context.Context, username, displayName, passwordHash, role string, mustChange bool) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	RecordLoginFailure(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (*domain.User, error)
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string, mustChange bool) error
	SetMustChangePassword(ctx context.Context, id string, mustChange bool) error
	Unlock(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userCols = `id, username, display_name, password_hash, role, is_active,
must_change_password, failed_login_attempts, locked_until, last_login_at,
created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.MustChangePassword, &u.FailedLoginAttempts, &u.LockedUntil, &u.LastLoginAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, username, displayName, passwordHash, role string, mustChange bool) (*domain.User, error) {
	const q = `INSERT INTO users (
		id, username, display_name, password_hash, role, must_change_password
	) VALUES ($1,$2,$3,$4,$5,$6)
	RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, uuid.NewString(), username, displayName, passwordHash, role, mustChange))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUniqueViolation
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE lower(username)=lower($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, username))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + userCols + ` FROM users ORDER BY username ASC LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// RecordLoginFailure increments the failure counter and sets locked_until
// when the post-increment count reaches maxAttempts. The decision happens
// inside the UPDATE so concurrent failures cannot race past the threshold.
// Returns the updated row so the caller sees the new count and lock state.
func (r *userRepository) RecordLoginFailure(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (*domain.User, error) {
	const q = `UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
			locked_until = CASE
				WHEN failed_login_attempts + 1 >= $2 THEN $3
				ELSE locked_until
			END,
			updated_at = now()
		WHERE id=$1
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id, maxAttempts, lockUntil))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE users
		SET failed_login_attempts = 0,
			locked_until = NULL,
			last_login_at = $2,
			updated_at = now()
		WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id, at)
	return err
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string, mustChange bool) error {
	const q = `UPDATE users
		SET password_hash = $2, must_change_password = $3, updated_at = now()
		WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id, passwordHash, mustChange)
	return err
}

func (r *userRepository) SetMustChangePassword(ctx context.Context, id string, mustChange bool) error {
	const q = `UPDATE users SET must_change_password = $2, updated_at = now() WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id, mustChange)
	return err
}

func (r *userRepository) Unlock(ctx context.Context, id string) error {
	const q = `UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL, updated_at = now()
		WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func (r *userRepository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	const q = `UPDATE users SET is_active = $2, updated_at = now() WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, active)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
