package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository"
)

type ConcertRepo struct{ r repos }

func (c *ConcertRepo) Get(_ context.Context, id int64) (*domain.Concert, error) {
	const op = "memory.ConcertRepo.Get"

	var out domain.Concert
	err := c.r.do(func(st *state) error {
		v, ok := st.concerts[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out, nil
}

func (c *ConcertRepo) Create(_ context.Context, concert *domain.Concert) (int64, error) {
	const op = "memory.ConcertRepo.Create"

	err := c.r.do(func(st *state) error {
		if _, ok := st.users[concert.OwnerID]; !ok {
			return repository.ErrNotFound
		}

		st.nextConcertID++
		now := time.Now()

		concert.ID = st.nextConcertID
		concert.CreatedAt = now
		concert.UpdatedAt = now
		st.concerts[concert.ID] = *concert

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return concert.ID, nil
}

func (c *ConcertRepo) Delete(_ context.Context, id int64) error {
	const op = "memory.ConcertRepo.Delete"

	err := c.r.do(func(st *state) error {
		if _, ok := st.concerts[id]; !ok {
			return repository.ErrNotFound
		}

		removed := make(map[uuid.UUID]struct{})
		for rid, res := range st.reservations {
			if res.ConcertID == id {
				removed[rid] = struct{}{}
				delete(st.reservations, rid)
			}
		}

		for i := range st.points {
			if _, ok := removed[st.points[i].ReservationID]; ok {
				st.points[i].ReservationID = uuid.Nil
			}
		}

		for sid, seat := range st.seats {
			if seat.ConcertID == id {
				delete(st.seats, sid)
			}
		}

		delete(st.concerts, id)

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

type SeatRepo struct{ r repos }

func (s *SeatRepo) Get(_ context.Context, seatID int64) (*domain.Seat, error) {
	const op = "memory.SeatRepo.Get"

	var out domain.Seat
	err := s.r.do(func(st *state) error {
		v, ok := st.seats[seatID]
		if !ok {
			return repository.ErrNotFound
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out, nil
}

func (s *SeatRepo) List(_ context.Context, concertID int64, onlyAvailable bool) ([]domain.Seat, error) {
	var out []domain.Seat
	_ = s.r.do(func(st *state) error {
		for _, seat := range st.seatsOf(concertID) {
			if onlyAvailable && seat.Status != domain.SeatAvailable {
				continue
			}
			out = append(out, seat)
		}
		return nil
	})

	return out, nil
}

func (s *SeatRepo) Counts(_ context.Context, concertID int64) (*domain.SeatCounts, error) {
	var sc domain.SeatCounts
	_ = s.r.do(func(st *state) error {
		for _, seat := range st.seatsOf(concertID) {
			switch seat.Status {
			case domain.SeatAvailable:
				sc.Available++
			case domain.SeatHeld:
				sc.Held++
			case domain.SeatBooked:
				sc.Booked++
			case domain.SeatReleased:
				sc.Released++
			}
		}
		return nil
	})

	sc.Total = sc.Available + sc.Held + sc.Booked + sc.Released

	return &sc, nil
}

func (s *SeatRepo) CreateBatch(_ context.Context, concertID int64, labels []string) (int64, error) {
	const op = "memory.SeatRepo.CreateBatch"

	var created int64
	err := s.r.do(func(st *state) error {
		if _, ok := st.concerts[concertID]; !ok {
			return repository.ErrNotFound
		}

		existing := make(map[string]struct{})
		for _, seat := range st.seatsOf(concertID) {
			existing[seat.Label] = struct{}{}
		}

		for _, l := range labels {
			if _, ok := existing[l]; ok {
				continue
			}
			existing[l] = struct{}{}

			st.nextSeatID++
			st.seats[st.nextSeatID] = domain.Seat{
				ID:        st.nextSeatID,
				ConcertID: concertID,
				Label:     l,
				Status:    domain.SeatAvailable,
			}
			created++
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return created, nil
}

func hold(seat domain.Seat, reservationID uuid.UUID, expiresAt time.Time) domain.Seat {
	rid := reservationID
	exp := expiresAt

	seat.Status = domain.SeatHeld
	seat.ReservationID = &rid
	seat.HoldExpiresAt = &exp

	return seat
}

func free(seat domain.Seat) domain.Seat {
	seat.Status = domain.SeatAvailable
	seat.ReservationID = nil
	seat.HoldExpiresAt = nil

	return seat
}

func heldBy(seat domain.Seat, reservationID uuid.UUID) bool {
	return seat.ReservationID != nil && *seat.ReservationID == reservationID
}

func (s *SeatRepo) ClaimByID(
	_ context.Context,
	concertID, seatID int64,
	reservationID uuid.UUID,
	expiresAt time.Time,
) (*domain.Seat, error) {
	const op = "memory.SeatRepo.ClaimByID"

	var out domain.Seat
	err := s.r.do(func(st *state) error {
		seat, ok := st.seats[seatID]
		if !ok || seat.ConcertID != concertID {
			return repository.ErrNotFound
		}

		if seat.Status != domain.SeatAvailable {
			return repository.ErrSeatUnavailable
		}

		out = hold(seat, reservationID, expiresAt)
		st.seats[seatID] = out

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out, nil
}

func (s *SeatRepo) ClaimAny(
	_ context.Context,
	concertID int64,
	reservationID uuid.UUID,
	expiresAt time.Time,
) (*domain.Seat, error) {
	const op = "memory.SeatRepo.ClaimAny"

	var out domain.Seat
	err := s.r.do(func(st *state) error {
		for _, seat := range st.seatsOf(concertID) {
			if seat.Status != domain.SeatAvailable {
				continue
			}

			out = hold(seat, reservationID, expiresAt)
			st.seats[seat.ID] = out

			return nil
		}

		return repository.ErrConcertFull
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out, nil
}

func (s *SeatRepo) Book(_ context.Context, seatID int64, reservationID uuid.UUID, now time.Time) error {
	const op = "memory.SeatRepo.Book"

	err := s.r.do(func(st *state) error {
		seat, ok := st.seats[seatID]
		if !ok || seat.Status != domain.SeatHeld || !heldBy(seat, reservationID) ||
			seat.HoldExpiresAt == nil || !seat.HoldExpiresAt.After(now) {
			return repository.ErrHoldExpired
		}

		seat.Status = domain.SeatBooked
		seat.HoldExpiresAt = nil
		st.seats[seatID] = seat

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *SeatRepo) ReleaseHold(_ context.Context, seatID int64, reservationID uuid.UUID) (bool, error) {
	var released bool
	_ = s.r.do(func(st *state) error {
		seat, ok := st.seats[seatID]
		if !ok || seat.Status != domain.SeatHeld || !heldBy(seat, reservationID) {
			return nil
		}

		st.seats[seatID] = free(seat)
		released = true

		return nil
	})

	return released, nil
}

func (s *SeatRepo) ReleaseBooked(_ context.Context, seatID int64, reservationID uuid.UUID) error {
	const op = "memory.SeatRepo.ReleaseBooked"

	err := s.r.do(func(st *state) error {
		seat, ok := st.seats[seatID]
		if !ok || seat.Status != domain.SeatBooked || !heldBy(seat, reservationID) {
			return repository.ErrStateChanged
		}

		st.seats[seatID] = free(seat)

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *SeatRepo) ExpireHolds(_ context.Context, concertID int64, now time.Time) ([]domain.ExpiredHold, error) {
	var out []domain.ExpiredHold
	_ = s.r.do(func(st *state) error {
		for id, seat := range st.seats {
			if concertID != 0 && seat.ConcertID != concertID {
				continue
			}

			if seat.Status != domain.SeatHeld || seat.HoldExpiresAt == nil || seat.HoldExpiresAt.After(now) {
				continue
			}

			out = append(out, domain.ExpiredHold{
				ReservationID: *seat.ReservationID,
				ConcertID:     seat.ConcertID,
				SeatID:        id,
			})
			st.seats[id] = free(seat)
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })

	return out, nil
}

func (s *SeatRepo) Withdraw(_ context.Context, concertID, seatID int64) error {
	const op = "memory.SeatRepo.Withdraw"

	err := s.r.do(func(st *state) error {
		seat, ok := st.seats[seatID]
		if !ok || seat.ConcertID != concertID {
			return repository.ErrNotFound
		}

		if seat.Status != domain.SeatAvailable {
			return repository.ErrSeatUnavailable
		}

		seat.Status = domain.SeatReleased
		st.seats[seatID] = seat

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

type UserRepo struct{ r repos }

func (u *UserRepo) Get(_ context.Context, id int64) (*domain.User, error) {
	const op = "memory.UserRepo.Get"

	var out domain.User
	err := u.r.do(func(st *state) error {
		v, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out, nil
}

func (u *UserRepo) Debit(_ context.Context, id int64, amount int64) (int64, error) {
	const op = "memory.UserRepo.Debit"

	var balance int64
	err := u.r.do(func(st *state) error {
		user, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}

		if user.RemainingPoint < amount {
			return repository.ErrInsufficientBalance
		}

		user.RemainingPoint -= amount
		st.users[id] = user
		balance = user.RemainingPoint

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return balance, nil
}

func (u *UserRepo) Credit(_ context.Context, id int64, amount int64) (int64, error) {
	const op = "memory.UserRepo.Credit"

	var balance int64
	err := u.r.do(func(st *state) error {
		user, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}

		user.RemainingPoint += amount
		st.users[id] = user
		balance = user.RemainingPoint

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return balance, nil
}

type ReservationRepo struct{ r repos }

func withLabel(st *state, res domain.Reservation) domain.Reservation {
	if seat, ok := st.seats[res.SeatID]; ok {
		res.SeatLabel = seat.Label
	}

	return res
}

func (rr *ReservationRepo) Create(_ context.Context, res *domain.Reservation) error {
	const op = "memory.ReservationRepo.Create"

	err := rr.r.do(func(st *state) error {
		if _, ok := st.users[res.UserID]; !ok {
			return repository.ErrNotFound
		}

		if _, ok := st.seats[res.SeatID]; !ok {
			return repository.ErrNotFound
		}

		if _, ok := st.reservations[res.ID]; ok {
			return repository.ErrConflict
		}

		for _, other := range st.reservations {
			if other.SeatID == res.SeatID && other.Active() {
				return repository.ErrConflict
			}
		}

		st.reservations[res.ID] = *res

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (rr *ReservationRepo) Get(_ context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const op = "memory.ReservationRepo.Get"

	var out domain.Reservation
	err := rr.r.do(func(st *state) error {
		v, ok := st.reservations[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = withLabel(st, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out, nil
}

// GetForUpdate is Get: transactions already run one at a time.
func (rr *ReservationRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return rr.Get(ctx, id)
}

func (rr *ReservationRepo) ListByUser(_ context.Context, userID int64) ([]domain.Reservation, error) {
	var out []domain.Reservation
	_ = rr.r.do(func(st *state) error {
		for _, res := range st.reservations {
			if res.UserID == userID {
				out = append(out, withLabel(st, res))
			}
		}
		return nil
	})

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

func (rr *ReservationRepo) ListByConcert(
	_ context.Context,
	concertID int64,
	status domain.ReservationStatus,
) ([]domain.Reservation, error) {
	var out []domain.Reservation
	_ = rr.r.do(func(st *state) error {
		for _, res := range st.reservations {
			if res.ConcertID == concertID && res.Status == status {
				out = append(out, withLabel(st, res))
			}
		}
		return nil
	})

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (rr *ReservationRepo) Confirm(_ context.Context, id uuid.UUID, points int64, at time.Time) error {
	const op = "memory.ReservationRepo.Confirm"

	err := rr.r.do(func(st *state) error {
		res, ok := st.reservations[id]
		if !ok || res.Status != domain.ReservationPending {
			return repository.ErrStateChanged
		}

		confirmedAt := at
		res.Status = domain.ReservationConfirmed
		res.Points = points
		res.ConfirmedAt = &confirmedAt
		st.reservations[id] = res

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (rr *ReservationRepo) Cancel(
	_ context.Context,
	id uuid.UUID,
	from domain.ReservationStatus,
	reason domain.CancelReason,
	at time.Time,
) error {
	const op = "memory.ReservationRepo.Cancel"

	err := rr.r.do(func(st *state) error {
		res, ok := st.reservations[id]
		if !ok || res.Status != from {
			return repository.ErrStateChanged
		}

		cancelledAt := at
		res.Status = domain.ReservationCancelled
		res.CancelReason = reason
		res.CancelledAt = &cancelledAt
		st.reservations[id] = res

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

type PointRepo struct{ r repos }

func (p *PointRepo) Append(_ context.Context, e *domain.PointEntry) error {
	const op = "memory.PointRepo.Append"

	err := p.r.do(func(st *state) error {
		if _, ok := st.users[e.UserID]; !ok {
			return repository.ErrNotFound
		}

		st.nextPointID++
		e.ID = st.nextPointID
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now()
		}
		st.points = append(st.points, *e)

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (p *PointRepo) ListByUser(_ context.Context, userID int64) ([]domain.PointEntry, error) {
	var out []domain.PointEntry
	_ = p.r.do(func(st *state) error {
		for i := len(st.points) - 1; i >= 0; i-- {
			if st.points[i].UserID == userID {
				out = append(out, st.points[i])
			}
		}
		return nil
	})

	return out, nil
}
