package repository

import (
	"context"
	"time"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TempPasswordRepository interface {
	Create(ctx context.Context, userID, passwordHash, createdBy string, expiresAt time.Time) (*domain.TempPassword, error)
	ListActive(ctx context.Context, userID string, now time.Time) ([]domain.TempPassword, error)
	ListUnexpired(ctx context.Context, userID string, now time.Time) ([]domain.TempPassword, error)
	MarkUsed(ctx context.Context, id string, now time.Time) (bool, error)
}

type tempPasswordRepository struct {
	pool *pgxpool.Pool
}

func NewTempPasswordRepository(pool *pgxpool.Pool) TempPasswordRepository {
	return &tempPasswordRepository{pool: pool}
}

const tempPasswordCols = `id, user_id, password_hash, expires_at, used_at, created_by, created_at`

func (r *tempPasswordRepository) Create(ctx context.Context, userID, passwordHash, createdBy string, expiresAt time.Time) (*domain.TempPassword, error) {
	const q = `INSERT INTO temp_passwords (id, user_id, password_hash, expires_at, created_by)
	VALUES ($1,$2,$3,$4,$5)
	RETURNING ` + tempPasswordCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var tp domain.TempPassword
	err := r.pool.QueryRow(ctx, q, uuid.NewString(), userID, passwordHash, expiresAt, createdBy).Scan(
		&tp.ID, &tp.UserID, &tp.PasswordHash, &tp.ExpiresAt, &tp.UsedAt, &tp.CreatedBy, &tp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tp, nil
}

// ListActive returns unused, unexpired temporary credentials for a user,
// newest first. A user rarely has more than one outstanding at a time but
// repeated resets can stack them.
func (r *tempPasswordRepository) ListActive(ctx context.Context, userID string, now time.Time) ([]domain.TempPassword, error) {
	const q = `SELECT ` + tempPasswordCols + ` FROM temp_passwords
		WHERE user_id=$1 AND used_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var active []domain.TempPassword
	for rows.Next() {
		var tp domain.TempPassword
		if err := rows.Scan(
			&tp.ID, &tp.UserID, &tp.PasswordHash, &tp.ExpiresAt, &tp.UsedAt, &tp.CreatedBy, &tp.CreatedAt,
		); err != nil {
			return nil, err
		}
		active = append(active, tp)
	}
	return active, rows.Err()
}

// ListUnexpired returns unexpired temporary credentials regardless of use,
// newest first. The forced password change consults this: the credential
// that authenticated the session was consumed at login but must still count
// as the current password until it expires.
func (r *tempPasswordRepository) ListUnexpired(ctx context.Context, userID string, now time.Time) ([]domain.TempPassword, error) {
	const q = `SELECT ` + tempPasswordCols + ` FROM temp_passwords
		WHERE user_id=$1 AND expires_at > $2
		ORDER BY created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []domain.TempPassword
	for rows.Next() {
		var tp domain.TempPassword
		if err := rows.Scan(
			&tp.ID, &tp.UserID, &tp.PasswordHash, &tp.ExpiresAt, &tp.UsedAt, &tp.CreatedBy, &tp.CreatedAt,
		); err != nil {
			return nil, err
		}
		creds = append(creds, tp)
	}
	return creds, rows.Err()
}

// MarkUsed consumes a temporary credential. The used_at IS NULL guard makes
// consumption race-safe: only one concurrent login wins the row.
func (r *tempPasswordRepository) MarkUsed(ctx context.Context, id string, now time.Time) (bool, error) {
	const q = `UPDATE temp_passwords SET used_at = $2
		WHERE id=$1 AND used_at IS NULL AND expires_at > $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
