package repository

import (
	"context"
	"time"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WorkspaceRepository interface {
	GetDeskByID(ctx context.Context, id string) (*domain.Desk, error)
	ListDesks(ctx context.Context, zoneID string) ([]domain.Desk, error)
	GetZoneByID(ctx context.Context, id string) (*domain.Zone, error)
	ListZones(ctx context.Context) ([]domain.Zone, error)
	HasZoneAccess(ctx context.Context, userID, zoneID string) (bool, error)
}

type workspaceRepository struct {
	pool *pgxpool.Pool
}

func NewWorkspaceRepository(pool *pgxpool.Pool) WorkspaceRepository {
	return &workspaceRepository{pool: pool}
}

const deskCols = `id, label, zone_id, desk_type, status, equipment, created_at, updated_at`

func (r *workspaceRepository) GetDeskByID(ctx context.Context, id string) (*domain.Desk, error) {
	const q = `SELECT ` + deskCols + ` FROM desks WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var d domain.Desk
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&d.ID, &d.Label, &d.ZoneID, &d.DeskType, &d.Status, &d.Equipment,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &d, err
}

func (r *workspaceRepository) ListDesks(ctx context.Context, zoneID string) ([]domain.Desk, error) {
	q := `SELECT ` + deskCols + ` FROM desks`
	args := []any{}
	if zoneID != "" {
		q += ` WHERE zone_id=$1`
		args = append(args, zoneID)
	}
	q += ` ORDER BY label ASC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var desks []domain.Desk
	for rows.Next() {
		var d domain.Desk
		if err := rows.Scan(
			&d.ID, &d.Label, &d.ZoneID, &d.DeskType, &d.Status, &d.Equipment,
			&d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		desks = append(desks, d)
	}
	return desks, rows.Err()
}

const zoneCols = `id, name, description, floor, capacity, restricted, created_at, updated_at`

func (r *workspaceRepository) GetZoneByID(ctx context.Context, id string) (*domain.Zone, error) {
	const q = `SELECT ` + zoneCols + ` FROM zones WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var z domain.Zone
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&z.ID, &z.Name, &z.Description, &z.Floor, &z.Capacity, &z.Restricted,
		&z.CreatedAt, &z.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &z, err
}

func (r *workspaceRepository) ListZones(ctx context.Context) ([]domain.Zone, error) {
	const q = `SELECT ` + zoneCols + ` FROM zones ORDER BY floor ASC, name ASC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []domain.Zone
	for rows.Next() {
		var z domain.Zone
		if err := rows.Scan(
			&z.ID, &z.Name, &z.Description, &z.Floor, &z.Capacity, &z.Restricted,
			&z.CreatedAt, &z.UpdatedAt,
		); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// HasZoneAccess reports whether the user belongs to a team assigned to the
// zone. Only restricted zones consult this; open zones admit everyone.
func (r *workspaceRepository) HasZoneAccess(ctx context.Context, userID, zoneID string) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM team_members tm
		JOIN team_zones tz ON tz.team_id = tm.team_id
		WHERE tm.user_id = $1 AND tz.zone_id = $2
	)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var allowed bool
	err := r.pool.QueryRow(ctx, q, userID, zoneID).Scan(&allowed)
	return allowed, err
}
