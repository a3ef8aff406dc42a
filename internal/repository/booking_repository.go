package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Create(ctx context.Context, userID, deskID, date string, slot domain.TimeSlot, notes string) (*domain.Booking, error)
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	List(ctx context.Context, filter domain.BookingFilter, limit, offset int) ([]domain.BookingWithContext, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]domain.BookingWithContext, error)
	ConfirmedSlots(ctx context.Context, deskID, date string) ([]domain.TimeSlot, error)
	Cancel(ctx context.Context, id string) (bool, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, user_id, desk_id, booking_date, time_slot, status, notes, created_at, updated_at`

// Create inserts a confirmed booking only when no confirmed booking on the
// same desk and date overlaps the requested slot. A full_day slot overlaps
// both half-day slots and vice versa. The conditional insert plus the
// unique index on (desk_id, booking_date, time_slot) for confirmed rows
// means the database, not application code, is the conflict authority:
// two racing requests cannot both land.
func (r *bookingRepository) Create(ctx context.Context, userID, deskID, date string, slot domain.TimeSlot, notes string) (*domain.Booking, error) {
	const q = `INSERT INTO bookings (id, user_id, desk_id, booking_date, time_slot, status, notes)
	SELECT $1, $2, $3, $4, $5, 'confirmed', $6
	WHERE NOT EXISTS (
		SELECT 1 FROM bookings
		WHERE desk_id = $3 AND booking_date = $4 AND status = 'confirmed'
		AND (time_slot = $5 OR time_slot = 'full_day' OR $5 = 'full_day')
	)
	RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, uuid.NewString(), userID, deskID, date, slot, notes).Scan(
		&b.ID, &b.UserID, &b.DeskID, &b.Date, &b.TimeSlot, &b.Status, &b.Notes,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUniqueViolation
		}
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.DeskID, &b.Date, &b.TimeSlot, &b.Status, &b.Notes,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &b, err
}

const bookingContextCols = `b.id, b.user_id, b.desk_id, b.booking_date, b.time_slot, b.status, b.notes,
b.created_at, b.updated_at, d.label, d.zone_id, z.name, u.display_name`

func (r *bookingRepository) List(ctx context.Context, filter domain.BookingFilter, limit, offset int) ([]domain.BookingWithContext, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + bookingContextCols + ` FROM bookings b
		JOIN users u ON u.id = b.user_id
		JOIN desks d ON d.id = b.desk_id
		JOIN zones z ON z.id = d.zone_id
		WHERE 1=1`
	args := []any{}

	if filter.Date != "" {
		args = append(args, filter.Date)
		q += ` AND b.booking_date = $` + strconv.Itoa(len(args))
	}
	if filter.DeskID != "" {
		args = append(args, filter.DeskID)
		q += ` AND b.desk_id = $` + strconv.Itoa(len(args))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		q += ` AND b.user_id = $` + strconv.Itoa(len(args))
	}
	if filter.ZoneID != "" {
		args = append(args, filter.ZoneID)
		q += ` AND d.zone_id = $` + strconv.Itoa(len(args))
	}

	args = append(args, limit)
	q += ` ORDER BY b.booking_date DESC, b.created_at DESC LIMIT $` + strconv.Itoa(len(args))
	args = append(args, offset)
	q += ` OFFSET $` + strconv.Itoa(len(args))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBookingContexts(rows)
}

func (r *bookingRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]domain.BookingWithContext, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + bookingContextCols + ` FROM bookings b
		JOIN users u ON u.id = b.user_id
		JOIN desks d ON d.id = b.desk_id
		JOIN zones z ON z.id = d.zone_id
		WHERE b.user_id = $1
		ORDER BY b.booking_date DESC, b.created_at DESC
		LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBookingContexts(rows)
}

func scanBookingContexts(rows pgx.Rows) ([]domain.BookingWithContext, error) {
	var bookings []domain.BookingWithContext
	for rows.Next() {
		var b domain.BookingWithContext
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.DeskID, &b.Date, &b.TimeSlot, &b.Status, &b.Notes,
			&b.CreatedAt, &b.UpdatedAt, &b.DeskLabel, &b.ZoneID, &b.ZoneName, &b.UserDisplayName,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ConfirmedSlots returns the confirmed slots held on a desk for a date.
func (r *bookingRepository) ConfirmedSlots(ctx context.Context, deskID, date string) ([]domain.TimeSlot, error) {
	const q = `SELECT time_slot FROM bookings
		WHERE desk_id=$1 AND booking_date=$2 AND status='confirmed'`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, deskID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []domain.TimeSlot
	for rows.Next() {
		var s domain.TimeSlot
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func (r *bookingRepository) Cancel(ctx context.Context, id string) (bool, error) {
	const q = `UPDATE bookings SET status='cancelled', updated_at=now()
		WHERE id=$1 AND status='confirmed'`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
