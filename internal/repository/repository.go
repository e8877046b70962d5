package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/concertix/internal/domain"
)

type ConcertRepository interface {
	Get(ctx context.Context, id int64) (*domain.Concert, error)
	Create(ctx context.Context, c *domain.Concert) (int64, error)
	// Delete removes the concert together with its seats, reservations and
	// point journal links.
	Delete(ctx context.Context, id int64) error
}

type SeatRepository interface {
	Get(ctx context.Context, seatID int64) (*domain.Seat, error)
	List(ctx context.Context, concertID int64, onlyAvailable bool) ([]domain.Seat, error)
	Counts(ctx context.Context, concertID int64) (*domain.SeatCounts, error)
	CreateBatch(ctx context.Context, concertID int64, labels []string) (int64, error)

	ClaimByID(ctx context.Context, concertID, seatID int64, reservationID uuid.UUID, expiresAt time.Time) (*domain.Seat, error)
	ClaimAny(ctx context.Context, concertID int64, reservationID uuid.UUID, expiresAt time.Time) (*domain.Seat, error)
	Book(ctx context.Context, seatID int64, reservationID uuid.UUID, now time.Time) error
	ReleaseHold(ctx context.Context, seatID int64, reservationID uuid.UUID) (bool, error)
	ReleaseBooked(ctx context.Context, seatID int64, reservationID uuid.UUID) error
	// ExpireHolds reverts elapsed holds to available. concertID 0 covers
	// every concert.
	ExpireHolds(ctx context.Context, concertID int64, now time.Time) ([]domain.ExpiredHold, error)
	Withdraw(ctx context.Context, concertID, seatID int64) error
}

type UserRepository interface {
	Get(ctx context.Context, id int64) (*domain.User, error)
	Debit(ctx context.Context, id int64, amount int64) (int64, error)
	Credit(ctx context.Context, id int64, amount int64) (int64, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, r *domain.Reservation) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Reservation, error)
	ListByConcert(ctx context.Context, concertID int64, status domain.ReservationStatus) ([]domain.Reservation, error)
	Confirm(ctx context.Context, id uuid.UUID, points int64, at time.Time) error
	Cancel(ctx context.Context, id uuid.UUID, from domain.ReservationStatus, reason domain.CancelReason, at time.Time) error
}

type PointRepository interface {
	Append(ctx context.Context, e *domain.PointEntry) error
	ListByUser(ctx context.Context, userID int64) ([]domain.PointEntry, error)
}

// Repos is the set of repositories bound to one store handle, either the
// pool or an open transaction.
type Repos interface {
	Concerts() ConcertRepository
	Seats() SeatRepository
	Users() UserRepository
	Reservations() ReservationRepository
	Points() PointRepository
}

// Store is the ledger store: repositories outside a transaction plus a
// transaction boundary. RunTx commits only when fn returns nil.
type Store interface {
	Repos
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error
}
