package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository"
	redisrepo "github.com/kirinyoku/concertix/internal/repository/redis"
	"github.com/kirinyoku/concertix/internal/service/inventory"
	"github.com/kirinyoku/concertix/internal/service/points"
	"github.com/kirinyoku/concertix/internal/uow"
)

// Topics of the reservation events handed to the Publisher.
const (
	TopicConfirmed = "reservation.confirmed"
	TopicCancelled = "reservation.cancelled"
)

// DefaultCancelCutoff applies when Config.CancelCutoff is nil.
const DefaultCancelCutoff = 24 * time.Hour

type Config struct {
	HoldTTL    time.Duration
	MinHoldTTL time.Duration
	MaxHoldTTL time.Duration
	// CancelCutoff is how long before the concert refunds stop. nil means
	// DefaultCancelCutoff; a zero value allows cancelling up to the start.
	CancelCutoff *time.Duration
}

type Cache interface {
	InvalidateConcert(ctx context.Context, concertID int64) error
}

type Notifier interface {
	PublishConcertChanged(ctx context.Context, concertID int64) error
}

type Limiter interface {
	Allow(ctx context.Context, id string) (redisrepo.Decision, error)
}

type Publisher interface {
	PublishReservation(ctx context.Context, topic string, res *domain.Reservation) error
}

// Deps are the optional collaborators of the service. Nil fields are
// skipped.
type Deps struct {
	Cache     Cache
	Notifier  Notifier
	Limiter   Limiter
	Publisher Publisher
	Log       *slog.Logger
	Clock     func() time.Time
}

type Service struct {
	store     repository.Store
	uow       *uow.UoW
	inventory *inventory.Tracker
	ledger    *points.Ledger
	cache     Cache
	notifier  Notifier
	limiter   Limiter
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
	cfg       Config
	cutoff    time.Duration
}

func New(store repository.Store, u *uow.UoW, deps Deps, cfg Config) *Service {
	if cfg.MinHoldTTL <= 0 {
		cfg.MinHoldTTL = 15 * time.Second
	}

	if cfg.MaxHoldTTL <= 0 || cfg.MaxHoldTTL < cfg.MinHoldTTL {
		cfg.MaxHoldTTL = 10 * time.Minute
	}

	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 5 * time.Minute
	}

	cutoff := DefaultCancelCutoff
	if cfg.CancelCutoff != nil {
		cutoff = max(*cfg.CancelCutoff, 0)
	}

	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	if u == nil {
		u = uow.NewUoW(store)
	}

	s := &Service{
		store:     store,
		uow:       u,
		inventory: inventory.New(deps.Log),
		ledger:    points.New(deps.Clock),
		cache:     deps.Cache,
		notifier:  deps.Notifier,
		limiter:   deps.Limiter,
		publisher: deps.Publisher,
		log:       deps.Log,
		now:       deps.Clock,
		cfg:       cfg,
		cutoff:    cutoff,
	}

	s.cfg.HoldTTL = s.clampTTL(cfg.HoldTTL)

	return s
}

// Reserve books a seat for the user and debits the concert price in one
// logical step. The seat is held first and then confirmed; if the confirm
// fails the hold is released before the error is returned.
//
// Parameters:
//   - ctx: request-scoped context.
//   - userID: ID of the user reserving.
//   - concertID: ID of the concert.
//   - sel: an explicit seat or any available one.
//
// Returns:
//   - *domain.Reservation: the confirmed reservation.
//   - error: reservation.ErrConcertNotFound, reservation.ErrConcertExpired,
//     reservation.ErrSeatUnavailable, reservation.ErrConcertFull,
//     reservation.ErrInsufficientBalance or reservation.ErrRateLimited.
func (s *Service) Reserve(
	ctx context.Context,
	userID, concertID int64,
	sel domain.SeatSelector,
) (*domain.Reservation, error) {
	const op = "service.reservation.Reserve"

	if err := s.allow(ctx, userID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	held, err := s.hold(ctx, userID, concertID, sel, s.cfg.HoldTTL)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	res, err := s.confirm(ctx, held.ID, userID)
	if err != nil {
		s.compensate(ctx, held)
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return res, nil
}

// Hold claims a seat for ttl without debiting anything. The hold must be
// confirmed before it lapses.
//
// Returns:
//   - *domain.Reservation: the pending reservation representing the hold.
//   - error: see Reserve.
func (s *Service) Hold(
	ctx context.Context,
	userID, concertID int64,
	sel domain.SeatSelector,
	ttl time.Duration,
) (*domain.Reservation, error) {
	const op = "service.reservation.Hold"

	if err := s.allow(ctx, userID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	res, err := s.hold(ctx, userID, concertID, sel, s.clampTTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return res, nil
}

// Confirm debits the concert price and books the held seat.
//
// Returns:
//   - *domain.Reservation: the confirmed reservation.
//   - error: reservation.ErrHoldNotFound if there is no pending hold.
//   - error: reservation.ErrHoldExpired if the hold lapsed.
//   - error: reservation.ErrNotOwner if the hold belongs to another user.
//   - error: reservation.ErrInsufficientBalance if the user cannot pay.
func (s *Service) Confirm(ctx context.Context, holdID uuid.UUID, userID int64) (*domain.Reservation, error) {
	const op = "service.reservation.Confirm"

	res, err := s.confirm(ctx, holdID, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return res, nil
}

// ReleaseHold gives up a pending hold.
func (s *Service) ReleaseHold(ctx context.Context, holdID uuid.UUID, actor domain.Actor) error {
	const op = "service.reservation.ReleaseHold"

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		res, err := tx.Reservations().GetForUpdate(ctx, holdID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrHoldNotFound
			}

			return err
		}

		if !actor.Owns(res.UserID) {
			return ErrNotOwner
		}

		if res.Status != domain.ReservationPending {
			return ErrHoldNotFound
		}

		if err := s.release(ctx, tx, res, domain.CancelByUser, s.now()); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.concertChanged(ctx, res.ConcertID)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Expire reclaims every lapsed hold and reports how many were reclaimed.
func (s *Service) Expire(ctx context.Context) (int, error) {
	const op = "service.reservation.Expire"

	var reclaimed []domain.ExpiredHold

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		expired, err := s.inventory.ReclaimExpired(ctx, tx, 0, s.now())
		if err != nil {
			return err
		}

		reclaimed = expired

		after(func(ctx context.Context) {
			for _, id := range concertsOf(expired) {
				s.concertChanged(ctx, id)
			}
		})

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return len(reclaimed), nil
}

// Get returns a reservation visible to actor.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor domain.Actor) (*domain.Reservation, error) {
	const op = "service.reservation.Get"

	res, err := s.store.Reservations().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrReservationNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !actor.Owns(res.UserID) {
		return nil, fmt.Errorf("%s:%w", op, ErrNotOwner)
	}

	return res, nil
}

func (s *Service) hold(
	ctx context.Context,
	userID, concertID int64,
	sel domain.SeatSelector,
	ttl time.Duration,
) (*domain.Reservation, error) {
	var res *domain.Reservation

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		now := s.now()

		concert, err := s.liveConcert(ctx, tx, concertID, now)
		if err != nil {
			return err
		}

		if _, err := tx.Users().Get(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}

			return err
		}

		id := uuid.New()

		// a hold never outlives the moment the concert starts
		expiresAt := now.Add(ttl)
		if expiresAt.After(concert.ConcertTime) {
			expiresAt = concert.ConcertTime
		}

		seat, _, err := s.inventory.TryClaim(ctx, tx, concertID, sel, id, expiresAt, now)
		if err != nil {
			return err
		}

		res = &domain.Reservation{
			ID:            id,
			UserID:        userID,
			ConcertID:     concertID,
			SeatID:        seat.ID,
			SeatLabel:     seat.Label,
			Status:        domain.ReservationPending,
			HoldExpiresAt: expiresAt,
			CreatedAt:     now,
		}

		if err := tx.Reservations().Create(ctx, res); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrSeatUnavailable
			}

			return err
		}

		// the claim and any reclaimed holds changed the seat map
		after(func(ctx context.Context) {
			s.concertChanged(ctx, concertID)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (s *Service) confirm(ctx context.Context, holdID uuid.UUID, userID int64) (*domain.Reservation, error) {
	var out *domain.Reservation

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		now := s.now()

		res, err := tx.Reservations().GetForUpdate(ctx, holdID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrHoldNotFound
			}

			return err
		}

		if res.UserID != userID {
			return ErrNotOwner
		}

		switch {
		case res.Status == domain.ReservationCancelled && res.CancelReason == domain.CancelExpired:
			return ErrHoldExpired
		case res.Status != domain.ReservationPending:
			return ErrHoldNotFound
		}

		// nothing is paid for once the concert has started
		concert, err := s.liveConcert(ctx, tx, res.ConcertID, now)
		if err != nil {
			return err
		}

		if !res.HoldExpiresAt.After(now) {
			return ErrHoldExpired
		}

		if _, err := s.ledger.Debit(ctx, tx, userID, concert.Price, res.ID); err != nil {
			return err
		}

		if err := s.inventory.Book(ctx, tx, res.SeatID, res.ID, now); err != nil {
			if errors.Is(err, inventory.ErrHoldLapsed) {
				return ErrHoldExpired
			}

			return err
		}

		if err := tx.Reservations().Confirm(ctx, res.ID, concert.Price, now); err != nil {
			if errors.Is(err, repository.ErrStateChanged) {
				return ErrHoldNotFound
			}

			return err
		}

		confirmedAt := now
		res.Status = domain.ReservationConfirmed
		res.Points = concert.Price
		res.ConfirmedAt = &confirmedAt
		out = res

		after(func(ctx context.Context) {
			s.concertChanged(ctx, res.ConcertID)
			s.publish(ctx, TopicConfirmed, res)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// compensate releases a hold whose confirm failed. A failure here leaves
// the hold to lapse and be reclaimed by the sweeper.
func (s *Service) compensate(ctx context.Context, held *domain.Reservation) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		if err := s.release(ctx, tx, held, domain.CancelCompensated, s.now()); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.concertChanged(ctx, held.ConcertID)
		})

		return nil
	})
	if err != nil {
		s.log.Error("compensating release failed",
			slog.String("reservation_id", held.ID.String()),
			slog.Int64("seat_id", held.SeatID),
			slog.Any("error", err),
		)
	}
}

// release frees the seat of a pending reservation and cancels it. A
// reservation that is no longer pending is left alone.
func (s *Service) release(
	ctx context.Context,
	tx repository.Repos,
	res *domain.Reservation,
	reason domain.CancelReason,
	now time.Time,
) error {
	if _, err := s.inventory.ReleaseHold(ctx, tx, res.SeatID, res.ID); err != nil {
		return err
	}

	err := tx.Reservations().Cancel(ctx, res.ID, domain.ReservationPending, reason, now)
	if err != nil && !errors.Is(err, repository.ErrStateChanged) {
		return err
	}

	return nil
}

func (s *Service) liveConcert(
	ctx context.Context,
	repos repository.Repos,
	concertID int64,
	now time.Time,
) (*domain.Concert, error) {
	concert, err := repos.Concerts().Get(ctx, concertID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConcertNotFound
		}

		return nil, err
	}

	if !concert.StartsAfter(now) {
		return nil, ErrConcertExpired
	}

	return concert, nil
}

func (s *Service) allow(ctx context.Context, userID int64) error {
	if s.limiter == nil {
		return nil
	}

	d, err := s.limiter.Allow(ctx, strconv.FormatInt(userID, 10))
	if err != nil {
		return err
	}

	if !d.Allowed {
		return RateLimitedError{RetryAfter: d.RetryAfter}
	}

	return nil
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

func (s *Service) publish(ctx context.Context, topic string, res *domain.Reservation) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.PublishReservation(ctx, topic, res); err != nil {
		s.log.Warn("reservation event not published",
			slog.String("topic", topic),
			slog.String("reservation_id", res.ID.String()),
			slog.Any("error", err),
		)
	}
}

func (s *Service) clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.cfg.HoldTTL
	}

	if ttl < s.cfg.MinHoldTTL {
		return s.cfg.MinHoldTTL
	}

	if ttl > s.cfg.MaxHoldTTL {
		return s.cfg.MaxHoldTTL
	}

	return ttl
}

func concertsOf(holds []domain.ExpiredHold) []int64 {
	seen := make(map[int64]struct{}, len(holds))
	var out []int64

	for _, h := range holds {
		if _, ok := seen[h.ConcertID]; ok {
			continue
		}

		seen[h.ConcertID] = struct{}{}
		out = append(out, h.ConcertID)
	}

	return out
}
