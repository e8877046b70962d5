package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository"
)

const seatColumns = `id, concert_id, label, status, reservation_id, hold_expires_at`

type SeatRepo struct {
	pool DB
	db   DB
}

func (r *SeatRepo) With(db DB) *SeatRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SeatRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanSeat(row pgx.Row) (*domain.Seat, error) {
	var s domain.Seat
	var status string

	if err := row.Scan(
		&s.ID,
		&s.ConcertID,
		&s.Label,
		&status,
		&s.ReservationID,
		&s.HoldExpiresAt,
	); err != nil {
		return nil, err
	}

	s.Status = domain.SeatStatus(status)

	return &s, nil
}

func (r *SeatRepo) Get(ctx context.Context, seatID int64) (*domain.Seat, error) {
	const op = "postgres.SeatRepo.Get"

	db := r.handle()

	s, err := scanSeat(db.QueryRow(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE id = $1`,
		seatID,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return s, nil
}

// List lists seats for a concert ordered by ID.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - concertID: unique identifier of the concert.
//   - onlyAvailable: flag to filter only available seats.
func (r *SeatRepo) List(ctx context.Context, concertID int64, onlyAvailable bool) ([]domain.Seat, error) {
	const op = "postgres.SeatRepo.List"

	db := r.handle()

	query := `SELECT ` + seatColumns + ` FROM seats WHERE concert_id = $1`
	if onlyAvailable {
		query += ` AND status = 'available'`
	}
	query += ` ORDER BY id`

	rows, err := db.Query(ctx, query, concertID)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Counts counts seats by status for a concert.
func (r *SeatRepo) Counts(ctx context.Context, concertID int64) (*domain.SeatCounts, error) {
	const op = "postgres.SeatRepo.Counts"

	db := r.handle()

	var sc domain.SeatCounts
	err := db.QueryRow(ctx,
		`SELECT
		 	COALESCE(SUM(CASE WHEN status = 'available' THEN 1 ELSE 0 END), 0),
		 	COALESCE(SUM(CASE WHEN status = 'held' THEN 1 ELSE 0 END), 0),
		 	COALESCE(SUM(CASE WHEN status = 'booked' THEN 1 ELSE 0 END), 0),
		 	COALESCE(SUM(CASE WHEN status = 'released' THEN 1 ELSE 0 END), 0)
		 FROM seats
		 WHERE concert_id = $1`,
		concertID,
	).Scan(&sc.Available, &sc.Held, &sc.Booked, &sc.Released)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	sc.Total = sc.Available + sc.Held + sc.Booked + sc.Released

	return &sc, nil
}

func (r *SeatRepo) CreateBatch(ctx context.Context, concertID int64, labels []string) (int64, error) {
	const op = "postgres.SeatRepo.CreateBatch"

	db := r.handle()

	batch := &pgx.Batch{}
	for _, l := range labels {
		batch.Queue(
			`INSERT INTO seats(concert_id, label, status)
			 VALUES ($1, $2, 'available')
			 ON CONFLICT (concert_id, label) DO NOTHING`,
			concertID, l,
		)
	}

	br := db.SendBatch(ctx, batch)

	var created int64
	for range labels {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return created, wrapDBErr(op, err)
		}
		created += tag.RowsAffected()
	}

	if err := br.Close(); err != nil {
		return created, wrapDBErr(op, err)
	}

	return created, nil
}

// ClaimByID moves one seat from available to held in a single conditional
// update.
//
// Returns:
//   - *domain.Seat: the held seat.
//   - error: repository.ErrSeatUnavailable if the seat is not available.
//   - error: repository.ErrNotFound if the concert has no such seat.
func (r *SeatRepo) ClaimByID(
	ctx context.Context,
	concertID, seatID int64,
	reservationID uuid.UUID,
	expiresAt time.Time,
) (*domain.Seat, error) {
	const op = "postgres.SeatRepo.ClaimByID"

	db := r.handle()

	s, err := scanSeat(db.QueryRow(ctx,
		`UPDATE seats
		    SET status = 'held', reservation_id = $3, hold_expires_at = $4
		  WHERE concert_id = $1
		    AND id = $2
		    AND status = 'available'
		 RETURNING `+seatColumns,
		concertID, seatID, reservationID, expiresAt,
	))
	if err == nil {
		return s, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapDBErr(op, err)
	}

	var exists bool
	if err := db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM seats WHERE concert_id = $1 AND id = $2)`,
		concertID, seatID,
	).Scan(&exists); err != nil {
		return nil, wrapDBErr(op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil, fmt.Errorf("%s:%w", op, repository.ErrSeatUnavailable)
}

// ClaimAny picks the lowest-numbered available seat and holds it. Selection
// and transition are one statement so concurrent callers never pick the
// same row.
//
// Returns:
//   - error: repository.ErrConcertFull if no seat is available.
func (r *SeatRepo) ClaimAny(
	ctx context.Context,
	concertID int64,
	reservationID uuid.UUID,
	expiresAt time.Time,
) (*domain.Seat, error) {
	const op = "postgres.SeatRepo.ClaimAny"

	db := r.handle()

	s, err := scanSeat(db.QueryRow(ctx,
		`UPDATE seats
		    SET status = 'held', reservation_id = $2, hold_expires_at = $3
		  WHERE id = (
		        SELECT id FROM seats
		         WHERE concert_id = $1 AND status = 'available'
		         ORDER BY id
		         LIMIT 1
		         FOR UPDATE SKIP LOCKED)
		 RETURNING `+seatColumns,
		concertID, reservationID, expiresAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrConcertFull)
		}

		return nil, wrapDBErr(op, err)
	}

	return s, nil
}

// Book turns a live hold into a booking.
//
// Returns:
//   - error: repository.ErrHoldExpired if the seat is no longer held by the
//     reservation or the hold window has elapsed.
func (r *SeatRepo) Book(ctx context.Context, seatID int64, reservationID uuid.UUID, now time.Time) error {
	const op = "postgres.SeatRepo.Book"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE seats
		    SET status = 'booked', hold_expires_at = NULL
		  WHERE id = $1
		    AND reservation_id = $2
		    AND status = 'held'
		    AND hold_expires_at > $3`,
		seatID, reservationID, now,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrHoldExpired)
	}

	return nil
}

func (r *SeatRepo) ReleaseHold(ctx context.Context, seatID int64, reservationID uuid.UUID) (bool, error) {
	const op = "postgres.SeatRepo.ReleaseHold"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE seats
		    SET status = 'available', reservation_id = NULL, hold_expires_at = NULL
		  WHERE id = $1 AND reservation_id = $2 AND status = 'held'`,
		seatID, reservationID,
	)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return tag.RowsAffected() > 0, nil
}

// ReleaseBooked returns a booked seat to the pool.
//
// Returns:
//   - error: repository.ErrStateChanged if the seat is not booked by the
//     reservation.
func (r *SeatRepo) ReleaseBooked(ctx context.Context, seatID int64, reservationID uuid.UUID) error {
	const op = "postgres.SeatRepo.ReleaseBooked"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE seats
		    SET status = 'available', reservation_id = NULL, hold_expires_at = NULL
		  WHERE id = $1 AND reservation_id = $2 AND status = 'booked'`,
		seatID, reservationID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrStateChanged)
	}

	return nil
}

// ExpireHolds reverts elapsed holds to available and reports which
// reservations lost their seat. Rows locked by an in-flight confirm are
// skipped and picked up on a later pass.
func (r *SeatRepo) ExpireHolds(ctx context.Context, concertID int64, now time.Time) ([]domain.ExpiredHold, error) {
	const op = "postgres.SeatRepo.ExpireHolds"

	db := r.handle()

	rows, err := db.Query(ctx,
		`WITH expired AS (
		     SELECT id, concert_id, reservation_id
		       FROM seats
		      WHERE status = 'held'
		        AND hold_expires_at <= $1
		        AND ($2::bigint = 0 OR concert_id = $2)
		      FOR UPDATE SKIP LOCKED
		 )
		 UPDATE seats s
		    SET status = 'available', reservation_id = NULL, hold_expires_at = NULL
		   FROM expired e
		  WHERE s.id = e.id
		 RETURNING e.reservation_id, e.concert_id, e.id`,
		now, concertID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.ExpiredHold
	for rows.Next() {
		var h domain.ExpiredHold
		if err := rows.Scan(&h.ReservationID, &h.ConcertID, &h.SeatID); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Withdraw takes an available seat off sale.
//
// Returns:
//   - error: repository.ErrSeatUnavailable if the seat is held or booked.
//   - error: repository.ErrNotFound if the concert has no such seat.
func (r *SeatRepo) Withdraw(ctx context.Context, concertID, seatID int64) error {
	const op = "postgres.SeatRepo.Withdraw"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE seats
		    SET status = 'released'
		  WHERE concert_id = $1 AND id = $2 AND status = 'available'`,
		concertID, seatID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM seats WHERE concert_id = $1 AND id = $2)`,
		concertID, seatID,
	).Scan(&exists); err != nil {
		return wrapDBErr(op, err)
	}

	if !exists {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return fmt.Errorf("%s:%w", op, repository.ErrSeatUnavailable)
}
