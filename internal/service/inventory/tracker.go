// Package inventory tracks the state of every seat of a concert. All
// transitions go through conditional store updates, so two callers can
// never both own a seat regardless of how their transactions interleave.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository"
)

type Tracker struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}

	return &Tracker{log: log}
}

// TryClaim holds one seat of the concert for reservationID until expiresAt.
// Holds of the concert that have lapsed at now are reclaimed first, so a
// seat whose hold ran out is claimable even if no sweep has run yet.
//
// Returns:
//   - *domain.Seat: the held seat.
//   - []domain.ExpiredHold: holds reclaimed on the way.
//   - error: inventory.ErrSeatUnavailable if the selected seat is taken or withdrawn.
//   - error: inventory.ErrSeatNotFound if the concert has no such seat.
//   - error: inventory.ErrConcertFull if no seat is available.
func (t *Tracker) TryClaim(
	ctx context.Context,
	tx repository.Repos,
	concertID int64,
	sel domain.SeatSelector,
	reservationID uuid.UUID,
	expiresAt, now time.Time,
) (*domain.Seat, []domain.ExpiredHold, error) {
	const op = "service.inventory.TryClaim"

	reclaimed, err := t.ReclaimExpired(ctx, tx, concertID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("%s:%w", op, err)
	}

	var seat *domain.Seat
	if sel.Any() {
		seat, err = tx.Seats().ClaimAny(ctx, concertID, reservationID, expiresAt)
	} else {
		seat, err = tx.Seats().ClaimByID(ctx, concertID, sel.SeatID, reservationID, expiresAt)
	}

	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSeatUnavailable):
			return nil, reclaimed, fmt.Errorf("%s:%w", op, ErrSeatUnavailable)
		case errors.Is(err, repository.ErrConcertFull):
			return nil, reclaimed, fmt.Errorf("%s:%w", op, ErrConcertFull)
		case errors.Is(err, repository.ErrNotFound):
			return nil, reclaimed, fmt.Errorf("%s:%w", op, ErrSeatNotFound)
		}

		return nil, reclaimed, fmt.Errorf("%s:%w", op, err)
	}

	return seat, reclaimed, nil
}

// Book turns the reservation's live hold into a booking.
func (t *Tracker) Book(
	ctx context.Context,
	tx repository.Repos,
	seatID int64,
	reservationID uuid.UUID,
	now time.Time,
) error {
	const op = "service.inventory.Book"

	if err := tx.Seats().Book(ctx, seatID, reservationID, now); err != nil {
		if errors.Is(err, repository.ErrHoldExpired) {
			return fmt.Errorf("%s:%w", op, ErrHoldLapsed)
		}

		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// ReleaseHold frees the seat if reservationID still holds it. It reports
// whether anything changed; a hold already reclaimed is not an error.
func (t *Tracker) ReleaseHold(
	ctx context.Context,
	tx repository.Repos,
	seatID int64,
	reservationID uuid.UUID,
) (bool, error) {
	const op = "service.inventory.ReleaseHold"

	released, err := tx.Seats().ReleaseHold(ctx, seatID, reservationID)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	return released, nil
}

func (t *Tracker) ReleaseBooked(
	ctx context.Context,
	tx repository.Repos,
	seatID int64,
	reservationID uuid.UUID,
) error {
	const op = "service.inventory.ReleaseBooked"

	if err := tx.Seats().ReleaseBooked(ctx, seatID, reservationID); err != nil {
		if errors.Is(err, repository.ErrStateChanged) {
			return fmt.Errorf("%s:%w", op, ErrSeatStateChanged)
		}

		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// ReclaimExpired reverts lapsed holds (concertID 0 means every concert) and
// cancels the pending reservations that owned them.
func (t *Tracker) ReclaimExpired(
	ctx context.Context,
	tx repository.Repos,
	concertID int64,
	now time.Time,
) ([]domain.ExpiredHold, error) {
	const op = "service.inventory.ReclaimExpired"

	expired, err := tx.Seats().ExpireHolds(ctx, concertID, now)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	for _, h := range expired {
		err := tx.Reservations().Cancel(ctx, h.ReservationID, domain.ReservationPending, domain.CancelExpired, now)
		if err == nil {
			continue
		}

		if errors.Is(err, repository.ErrStateChanged) {
			t.log.Warn("expired hold had no pending reservation",
				slog.String("reservation_id", h.ReservationID.String()),
				slog.Int64("seat_id", h.SeatID),
			)
			continue
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return expired, nil
}

// Withdraw takes an available seat off sale for good.
func (t *Tracker) Withdraw(ctx context.Context, tx repository.Repos, concertID, seatID int64) error {
	const op = "service.inventory.Withdraw"

	if err := tx.Seats().Withdraw(ctx, concertID, seatID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%s:%w", op, ErrSeatNotFound)
		case errors.Is(err, repository.ErrSeatUnavailable):
			return fmt.Errorf("%s:%w", op, ErrSeatUnavailable)
		}

		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (t *Tracker) Counts(ctx context.Context, repos repository.Repos, concertID int64) (*domain.SeatCounts, error) {
	const op = "service.inventory.Counts"

	sc, err := repos.Seats().Counts(ctx, concertID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return sc, nil
}
