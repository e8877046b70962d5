package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository"
	"github.com/kirinyoku/concertix/internal/uow"
)

// Cancel cancels a reservation on behalf of actor. A confirmed reservation
// frees its seat and refunds the debited points, provided the concert is
// further than the cancel cutoff away. A pending one just drops its hold.
//
// Parameters:
//   - ctx: request-scoped context.
//   - reservationID: ID of the reservation to cancel.
//   - actor: the caller; admins may cancel any reservation.
//
// Returns:
//   - error: reservation.ErrReservationNotFound if the reservation does not exist.
//   - error: reservation.ErrNotOwner if actor is neither the owner nor an admin.
//   - error: reservation.ErrAlreadyCancelled if it was cancelled before; nothing is refunded twice.
//   - error: reservation.ErrCancellationWindowClosed if the concert is too close.
func (s *Service) Cancel(ctx context.Context, reservationID uuid.UUID, actor domain.Actor) error {
	const op = "service.reservation.Cancel"

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		now := s.now()

		res, err := tx.Reservations().GetForUpdate(ctx, reservationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReservationNotFound
			}

			return err
		}

		if !actor.Owns(res.UserID) {
			return ErrNotOwner
		}

		switch res.Status {
		case domain.ReservationCancelled:
			return ErrAlreadyCancelled
		case domain.ReservationPending:
			if err := s.release(ctx, tx, res, domain.CancelByUser, now); err != nil {
				return err
			}

			after(func(ctx context.Context) {
				s.concertChanged(ctx, res.ConcertID)
			})

			return nil
		}

		concert, err := tx.Concerts().Get(ctx, res.ConcertID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrConcertNotFound
			}

			return err
		}

		if !concert.ConcertTime.Add(-s.cutoff).After(now) {
			return ErrCancellationWindowClosed
		}

		if err := s.refund(ctx, tx, res, domain.CancelByUser, now); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.concertChanged(ctx, res.ConcertID)
			s.publish(ctx, TopicCancelled, res)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// refund reverses a confirmed reservation: status, seat and points move
// together. res is updated to its cancelled form.
func (s *Service) refund(
	ctx context.Context,
	tx repository.Repos,
	res *domain.Reservation,
	reason domain.CancelReason,
	now time.Time,
) error {
	if err := tx.Reservations().Cancel(ctx, res.ID, domain.ReservationConfirmed, reason, now); err != nil {
		if errors.Is(err, repository.ErrStateChanged) {
			return ErrAlreadyCancelled
		}

		return err
	}

	if err := s.inventory.ReleaseBooked(ctx, tx, res.SeatID, res.ID); err != nil {
		return err
	}

	if _, err := s.ledger.Credit(ctx, tx, res.UserID, res.Points, res.ID); err != nil {
		return err
	}

	cancelledAt := now
	res.Status = domain.ReservationCancelled
	res.CancelReason = reason
	res.CancelledAt = &cancelledAt

	return nil
}
