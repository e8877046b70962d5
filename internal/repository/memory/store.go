// Package memory is an in-process ledger store. Each transaction runs
// against a private copy of the state which replaces the shared state on
// commit; transactions are serialized by a single mutex, which makes every
// transaction serializable. Repositories handed to a RunTx callback must
// be the only store access made inside that callback.
//
// The mutex is store-wide, so transactions on different concerts queue
// behind one another. The store backs tests and STORE_DRIVER=memory local
// runs; the postgres store is the one that keeps concerts independent.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository"
)

type state struct {
	users        map[int64]domain.User
	concerts     map[int64]domain.Concert
	seats        map[int64]domain.Seat
	reservations map[uuid.UUID]domain.Reservation
	points       []domain.PointEntry

	nextConcertID int64
	nextSeatID    int64
	nextPointID   int64
}

func newState() *state {
	return &state{
		users:        make(map[int64]domain.User),
		concerts:     make(map[int64]domain.Concert),
		seats:        make(map[int64]domain.Seat),
		reservations: make(map[uuid.UUID]domain.Reservation),
	}
}

// clone copies every table. Pointer fields inside records are never
// mutated in place, only replaced, so copying the structs is enough.
func (s *state) clone() *state {
	cp := &state{
		users:         make(map[int64]domain.User, len(s.users)),
		concerts:      make(map[int64]domain.Concert, len(s.concerts)),
		seats:         make(map[int64]domain.Seat, len(s.seats)),
		reservations:  make(map[uuid.UUID]domain.Reservation, len(s.reservations)),
		points:        append([]domain.PointEntry(nil), s.points...),
		nextConcertID: s.nextConcertID,
		nextSeatID:    s.nextSeatID,
		nextPointID:   s.nextPointID,
	}

	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.concerts {
		cp.concerts[k] = v
	}
	for k, v := range s.seats {
		cp.seats[k] = v
	}
	for k, v := range s.reservations {
		cp.reservations[k] = v
	}

	return cp
}

// seatsOf returns the concert's seats ordered by ID.
func (s *state) seatsOf(concertID int64) []domain.Seat {
	var out []domain.Seat
	for _, seat := range s.seats {
		if seat.ConcertID == concertID {
			out = append(out, seat)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

type Store struct {
	mu sync.Mutex
	st *state
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{st: newState()}
}

// PutUser inserts or replaces a user record. The auth service owns users,
// so this exists for seeding.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.users[u.ID] = u
}

func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()

	if err := fn(ctx, repos{tx: work}); err != nil {
		return err
	}

	s.st = work

	return nil
}

func (s *Store) Concerts() repository.ConcertRepository {
	return &ConcertRepo{repos{store: s}}
}

func (s *Store) Seats() repository.SeatRepository {
	return &SeatRepo{repos{store: s}}
}

func (s *Store) Users() repository.UserRepository {
	return &UserRepo{repos{store: s}}
}

func (s *Store) Reservations() repository.ReservationRepository {
	return &ReservationRepo{repos{store: s}}
}

func (s *Store) Points() repository.PointRepository {
	return &PointRepo{repos{store: s}}
}

// repos is bound either to the shared state through store (every call
// takes the lock) or to a transaction's private copy through tx.
type repos struct {
	store *Store
	tx    *state
}

func (r repos) do(fn func(st *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return fn(r.store.st)
}

func (r repos) Concerts() repository.ConcertRepository         { return &ConcertRepo{r} }
func (r repos) Seats() repository.SeatRepository               { return &SeatRepo{r} }
func (r repos) Users() repository.UserRepository               { return &UserRepo{r} }
func (r repos) Reservations() repository.ReservationRepository { return &ReservationRepo{r} }
func (r repos) Points() repository.PointRepository             { return &PointRepo{r} }
