package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository"
	"github.com/kirinyoku/concertix/internal/service/inventory"
	"github.com/kirinyoku/concertix/internal/service/points"
	"github.com/kirinyoku/concertix/internal/service/reservation"
	"github.com/kirinyoku/concertix/internal/uow"
)

type Service struct {
	uow       *uow.UoW
	inventory *inventory.Tracker
	ledger    *points.Ledger
	cache     reservation.Cache
	notifier  reservation.Notifier
	publisher reservation.Publisher
	log       *slog.Logger
	now       func() time.Time
}

// New takes the same optional collaborators as the reservation service;
// the limiter is ignored.
func New(u *uow.UoW, deps reservation.Deps) *Service {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	return &Service{
		uow:       u,
		inventory: inventory.New(deps.Log),
		ledger:    points.New(deps.Clock),
		cache:     deps.Cache,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		log:       deps.Log,
		now:       deps.Clock,
	}
}

// NewConcert describes a concert to create. When SeatLabels is empty the
// concert is general admission and MaxSeats seats labelled GA-0001... are
// created.
type NewConcert struct {
	Title       string
	Description string
	ImageURL    string
	ConcertTime time.Time
	Category    string
	Location    string
	MaxSeats    int
	Price       int64
	SeatLabels  []string
}

// CreateConcert creates a concert owned by actor and materialises its
// seats in the same transaction.
//
// Returns:
//   - *domain.Concert: the created concert.
//   - error: admin.ErrForbidden if actor is not an admin.
//   - error: admin.ErrInvalidConcert if the input is inconsistent.
//   - error: admin.ErrSeatsConflict if seat labels repeat.
func (s *Service) CreateConcert(ctx context.Context, actor domain.Actor, in NewConcert) (*domain.Concert, error) {
	const op = "service.admin.CreateConcert"

	if !actor.IsAdmin {
		return nil, fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	if err := s.validate(in); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	labels := in.SeatLabels
	if len(labels) == 0 {
		labels = generalAdmission(in.MaxSeats)
	}

	var concert *domain.Concert

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		c := &domain.Concert{
			OwnerID:     actor.UserID,
			Title:       in.Title,
			Description: in.Description,
			ImageURL:    in.ImageURL,
			ConcertTime: in.ConcertTime,
			Category:    in.Category,
			Location:    in.Location,
			MaxSeats:    in.MaxSeats,
			Price:       in.Price,
		}

		id, err := tx.Concerts().Create(ctx, c)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrOwnerNotFound
			}

			return err
		}

		created, err := tx.Seats().CreateBatch(ctx, id, labels)
		if err != nil {
			return err
		}

		if created != int64(len(labels)) {
			return ErrSeatsConflict
		}

		concert = c

		after(func(ctx context.Context) {
			s.concertChanged(ctx, id)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return concert, nil
}

// DeleteConcert refunds every confirmed reservation of the concert and
// then removes the concert with its seats and reservations.
//
// Returns:
//   - int: number of refunded reservations.
//   - error: admin.ErrConcertNotFound if the concert does not exist.
func (s *Service) DeleteConcert(ctx context.Context, actor domain.Actor, concertID int64) (int, error) {
	const op = "service.admin.DeleteConcert"

	if !actor.IsAdmin {
		return 0, fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	var refunded []domain.Reservation

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		refunded = refunded[:0]
		now := s.now()

		if _, err := tx.Concerts().Get(ctx, concertID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrConcertNotFound
			}

			return err
		}

		confirmed, err := tx.Reservations().ListByConcert(ctx, concertID, domain.ReservationConfirmed)
		if err != nil {
			return err
		}

		for _, res := range confirmed {
			if _, err := s.ledger.Credit(ctx, tx, res.UserID, res.Points, res.ID); err != nil {
				return err
			}

			cancelledAt := now
			res.Status = domain.ReservationCancelled
			res.CancelReason = domain.CancelReleased
			res.CancelledAt = &cancelledAt
			refunded = append(refunded, res)
		}

		if err := tx.Concerts().Delete(ctx, concertID); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.concertChanged(ctx, concertID)

			for i := range refunded {
				s.publish(ctx, &refunded[i])
			}
		})

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	s.log.Info("concert deleted",
		slog.Int64("concert_id", concertID),
		slog.Int("refunded", len(refunded)),
	)

	return len(refunded), nil
}

// WithdrawSeat takes an available seat off sale.
//
// Returns:
//   - error: admin.ErrSeatNotFound if the concert has no such seat.
//   - error: admin.ErrSeatUnavailable if the seat is held or booked.
func (s *Service) WithdrawSeat(ctx context.Context, actor domain.Actor, concertID, seatID int64) error {
	const op = "service.admin.WithdrawSeat"

	if !actor.IsAdmin {
		return fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		if err := s.inventory.Withdraw(ctx, tx, concertID, seatID); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.concertChanged(ctx, concertID)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Service) validate(in NewConcert) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidConcert)
	case in.MaxSeats <= 0:
		return fmt.Errorf("%w: max seats must be positive", ErrInvalidConcert)
	case in.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidConcert)
	case !in.ConcertTime.After(s.now()):
		return fmt.Errorf("%w: concert time must be in the future", ErrInvalidConcert)
	case len(in.SeatLabels) > 0 && len(in.SeatLabels) != in.MaxSeats:
		return fmt.Errorf("%w: %d seat labels for %d seats", ErrInvalidConcert, len(in.SeatLabels), in.MaxSeats)
	}

	return nil
}

func generalAdmission(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("GA-%04d", i+1)
	}

	return labels
}

func (s *Service) concertChanged(ctx context.Context, concertID int64) {
	if s.cache != nil {
		if err := s.cache.InvalidateConcert(ctx, concertID); err != nil {
			s.log.Warn("cache invalidation failed", slog.Int64("concert_id", concertID), slog.Any("error", err))
		}
	}

	if s.notifier != nil {
		if err := s.notifier.PublishConcertChanged(ctx, concertID); err != nil {
			s.log.Warn("concert change notice failed", slog.Int64("concert_id", concertID), slog.Any("error", err))
		}
	}
}

func (s *Service) publish(ctx context.Context, res *domain.Reservation) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.PublishReservation(ctx, reservation.TopicCancelled, res); err != nil {
		s.log.Warn("reservation event not published",
			slog.String("reservation_id", res.ID.String()),
			slog.Any("error", err),
		)
	}
}
