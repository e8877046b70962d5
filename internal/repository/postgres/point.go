package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/kirinyoku/concertix/internal/domain"
)

type PointRepo struct {
	pool DB
	db   DB
}

func (r *PointRepo) With(db DB) *PointRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *PointRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *PointRepo) Append(ctx context.Context, e *domain.PointEntry) error {
	const op = "postgres.PointRepo.Append"

	db := r.handle()

	if err := db.QueryRow(ctx,
		`INSERT INTO point_entries(user_id, reservation_id, delta, balance_after, kind, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		e.UserID, nullableUUID(e.ReservationID), e.Delta, e.BalanceAfter, string(e.Kind), e.CreatedAt,
	).Scan(&e.ID); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ListByUser returns the user's journal, newest first.
func (r *PointRepo) ListByUser(ctx context.Context, userID int64) ([]domain.PointEntry, error) {
	const op = "postgres.PointRepo.ListByUser"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, user_id, reservation_id, delta, balance_after, kind, created_at
		 FROM point_entries
		 WHERE user_id = $1
		 ORDER BY id DESC`,
		userID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.PointEntry
	for rows.Next() {
		var e domain.PointEntry
		var kind string
		var reservationID *uuid.UUID

		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&reservationID,
			&e.Delta,
			&e.BalanceAfter,
			&kind,
			&e.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}

		e.Kind = domain.PointEntryKind(kind)
		if reservationID != nil {
			e.ReservationID = *reservationID
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
