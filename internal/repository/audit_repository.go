package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepository interface {
	Insert(ctx context.Context, userID *string, action string, details map[string]any, ipAddress string) error
	List(ctx context.Context, action string, limit, offset int) ([]domain.AuditEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Insert(ctx context.Context, userID *string, action string, details map[string]any, ipAddress string) error {
	const q = `INSERT INTO audit_log (id, user_id, action, details, ip_address)
	VALUES ($1,$2,$3,$4,$5)`

	var detailsJSON []byte
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return err
		}
		detailsJSON = b
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, uuid.NewString(), userID, action, detailsJSON, ipAddress)
	return err
}

func (r *auditRepository) List(ctx context.Context, action string, limit, offset int) ([]domain.AuditEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT a.id, a.user_id, a.action, a.details, a.ip_address, a.created_at,
		COALESCE(u.username, '')
		FROM audit_log a
		LEFT JOIN users u ON u.id = a.user_id`
	args := []any{}
	if action != "" {
		q += ` WHERE a.action = $1 ORDER BY a.created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, action, limit, offset)
	} else {
		q += ` ORDER BY a.created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var detailsJSON []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &detailsJSON, &e.IPAddress, &e.CreatedAt, &e.Username); err != nil {
			return nil, err
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
