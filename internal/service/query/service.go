package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository"
	redisrepo "github.com/kirinyoku/concertix/internal/repository/redis"
	"github.com/kirinyoku/concertix/internal/service/points"
)

type Config struct {
	ConcertSummaryTTL time.Duration
	AvailabilityTTL   time.Duration
	SeatMapTTL        time.Duration
}

type Service struct {
	store  repository.Store
	cache  *redisrepo.Cache
	ledger *points.Ledger
	cfg    Config
}

// New builds the read side. cache may be nil, in which case every read
// goes to the store.
func New(store repository.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.ConcertSummaryTTL <= 0 {
		cfg.ConcertSummaryTTL = 60 * time.Second
	}

	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 15 * time.Second
	}

	if cfg.SeatMapTTL <= 0 {
		cfg.SeatMapTTL = 15 * time.Second
	}

	return &Service{
		store:  store,
		cache:  cache,
		ledger: points.New(nil),
		cfg:    cfg,
	}
}

func cached[T any](
	ctx context.Context,
	s *Service,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if s.cache == nil {
		return loader(ctx)
	}

	return redisrepo.GetOrSetJSON(ctx, s.cache, key, ttl, loader)
}

// GetConcert retrieves a concert by its ID through the summary cache.
//
// Returns:
//   - error: query.ErrConcertNotFound if the concert is not found.
func (s *Service) GetConcert(ctx context.Context, id int64) (*domain.Concert, error) {
	const op = "service.query.GetConcert"

	concert, err := cached(ctx, s, redisrepo.KeyConcertSummary(id), s.cfg.ConcertSummaryTTL,
		func(ctx context.Context) (domain.Concert, error) {
			c, err := s.store.Concerts().Get(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Concert{}, ErrConcertNotFound
				}

				return domain.Concert{}, err
			}

			return *c, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &concert, nil
}

// Availability counts the concert's seats by status. Counts may trail
// writes by up to the availability TTL when the cache is on.
func (s *Service) Availability(ctx context.Context, concertID int64) (*domain.SeatCounts, error) {
	const op = "service.query.Availability"

	if _, err := s.GetConcert(ctx, concertID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	counts, err := cached(ctx, s, redisrepo.KeyConcertAvailability(concertID), s.cfg.AvailabilityTTL,
		func(ctx context.Context) (domain.SeatCounts, error) {
			sc, err := s.store.Seats().Counts(ctx, concertID)
			if err != nil {
				return domain.SeatCounts{}, err
			}

			return *sc, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &counts, nil
}

// ListSeats returns the concert's seat map ordered by seat ID, optionally
// only the seats that can be claimed right now.
func (s *Service) ListSeats(ctx context.Context, concertID int64, onlyAvailable bool) ([]domain.Seat, error) {
	const op = "service.query.ListSeats"

	if _, err := s.GetConcert(ctx, concertID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	seats, err := cached(ctx, s, redisrepo.KeyConcertSeatMap(concertID), s.cfg.SeatMapTTL,
		func(ctx context.Context) ([]domain.Seat, error) {
			return s.store.Seats().List(ctx, concertID, false)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !onlyAvailable {
		return seats, nil
	}

	now := time.Now()
	out := make([]domain.Seat, 0, len(seats))
	for _, seat := range seats {
		if seat.Status == domain.SeatAvailable || seat.HoldLapsed(now) {
			out = append(out, seat)
		}
	}

	return out, nil
}

// ListUserReservations lists the user's reservations, newest first.
func (s *Service) ListUserReservations(ctx context.Context, userID int64) ([]domain.Reservation, error) {
	const op = "service.query.ListUserReservations"

	out, err := s.store.Reservations().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Points returns the user's balance and point journal.
//
// Returns:
//   - error: query.ErrUserNotFound if the user does not exist.
func (s *Service) Points(ctx context.Context, userID int64) (int64, []domain.PointEntry, error) {
	const op = "service.query.Points"

	balance, err := s.ledger.Balance(ctx, s.store, userID)
	if err != nil {
		return 0, nil, fmt.Errorf("%s:%w", op, err)
	}

	history, err := s.ledger.History(ctx, s.store, userID)
	if err != nil {
		return 0, nil, fmt.Errorf("%s:%w", op, err)
	}

	return balance, history, nil
}
