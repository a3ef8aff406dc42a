package repository

import (
	"context"
	"time"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time, ipAddress, userAgent string) (*domain.Session, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

const sessionCols = `id, user_id, token_hash, expires_at, ip_address, user_agent, created_at`

func (r *sessionRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time, ipAddress, userAgent string) (*domain.Session, error) {
	const q = `INSERT INTO sessions (id, user_id, token_hash, expires_at, ip_address, user_agent)
	VALUES ($1,$2,$3,$4,$5,$6)
	RETURNING ` + sessionCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.Session
	err := r.pool.QueryRow(ctx, q, uuid.NewString(), userID, tokenHash, expiresAt, ipAddress, userAgent).Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.IPAddress, &s.UserAgent, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions WHERE token_hash=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.Session
	err := r.pool.QueryRow(ctx, q, tokenHash).Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.IPAddress, &s.UserAgent, &s.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &s, err
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM sessions WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// DeleteByTokenHash is idempotent: deleting an unknown token is not an error.
func (r *sessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	const q = `DELETE FROM sessions WHERE token_hash=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, tokenHash)
	return err
}

func (r *sessionRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	const q = `DELETE FROM sessions WHERE user_id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM sessions WHERE expires_at <= $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
