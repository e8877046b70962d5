package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository"
)

const reservationSelect = `SELECT r.id, r.user_id, r.concert_id, r.seat_id, s.label, r.status,
       r.points, r.cancel_reason, r.hold_expires_at, r.created_at,
       r.confirmed_at, r.cancelled_at
  FROM reservations r
  JOIN seats s ON s.id = r.seat_id`

type ReservationRepo struct {
	pool DB
	db   DB
}

func (r *ReservationRepo) With(db DB) *ReservationRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReservationRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var res domain.Reservation
	var status, reason string

	if err := row.Scan(
		&res.ID,
		&res.UserID,
		&res.ConcertID,
		&res.SeatID,
		&res.SeatLabel,
		&status,
		&res.Points,
		&reason,
		&res.HoldExpiresAt,
		&res.CreatedAt,
		&res.ConfirmedAt,
		&res.CancelledAt,
	); err != nil {
		return nil, err
	}

	res.Status = domain.ReservationStatus(status)
	res.CancelReason = domain.CancelReason(reason)

	return &res, nil
}

// Create inserts a reservation. A second live reservation for the same seat
// violates reservations_live_seat_uidx.
//
// Returns:
//   - error: repository.ErrConflict if the seat already has a live reservation.
func (r *ReservationRepo) Create(ctx context.Context, res *domain.Reservation) error {
	const op = "postgres.ReservationRepo.Create"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO reservations(id, user_id, concert_id, seat_id, status, points,
		                          cancel_reason, hold_expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		res.ID, res.UserID, res.ConcertID, res.SeatID, string(res.Status), res.Points,
		string(res.CancelReason), res.HoldExpiresAt, res.CreatedAt,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Get retrieves a reservation with its seat label.
//
// Returns:
//   - error: repository.ErrNotFound if the reservation is not found.
func (r *ReservationRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const op = "postgres.ReservationRepo.Get"

	res, err := scanReservation(r.handle().QueryRow(ctx, reservationSelect+` WHERE r.id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return res, nil
}

// GetForUpdate is Get with a row lock on the reservation, so concurrent
// cancellations of the same reservation queue behind each other.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const op = "postgres.ReservationRepo.GetForUpdate"

	res, err := scanReservation(r.handle().QueryRow(ctx,
		reservationSelect+` WHERE r.id = $1 FOR UPDATE OF r`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return res, nil
}

// ListByUser returns the user's reservations, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Reservation, error) {
	const op = "postgres.ReservationRepo.ListByUser"

	return r.list(ctx, op, reservationSelect+` WHERE r.user_id = $1 ORDER BY r.created_at DESC`, userID)
}

func (r *ReservationRepo) ListByConcert(
	ctx context.Context,
	concertID int64,
	status domain.ReservationStatus,
) ([]domain.Reservation, error) {
	const op = "postgres.ReservationRepo.ListByConcert"

	return r.list(ctx, op,
		reservationSelect+` WHERE r.concert_id = $1 AND r.status = $2 ORDER BY r.created_at`,
		concertID, string(status),
	)
}

func (r *ReservationRepo) list(ctx context.Context, op, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.handle().Query(ctx, query, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Confirm moves a pending reservation to confirmed.
//
// Returns:
//   - error: repository.ErrStateChanged if the reservation is not pending.
func (r *ReservationRepo) Confirm(ctx context.Context, id uuid.UUID, points int64, at time.Time) error {
	const op = "postgres.ReservationRepo.Confirm"

	tag, err := r.handle().Exec(ctx,
		`UPDATE reservations
		    SET status = 'confirmed', points = $2, confirmed_at = $3
		  WHERE id = $1 AND status = 'pending'`,
		id, points, at,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrStateChanged)
	}

	return nil
}

// Cancel moves a reservation from the given status to cancelled.
//
// Returns:
//   - error: repository.ErrStateChanged if the reservation is not in status from.
func (r *ReservationRepo) Cancel(
	ctx context.Context,
	id uuid.UUID,
	from domain.ReservationStatus,
	reason domain.CancelReason,
	at time.Time,
) error {
	const op = "postgres.ReservationRepo.Cancel"

	tag, err := r.handle().Exec(ctx,
		`UPDATE reservations
		    SET status = 'cancelled', cancel_reason = $3, cancelled_at = $4
		  WHERE id = $1 AND status = $2`,
		id, string(from), string(reason), at,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrStateChanged)
	}

	return nil
}
