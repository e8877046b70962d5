package domain

import (
	"time"

	"github.com/google/uuid"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatHeld      SeatStatus = "held"
	SeatBooked    SeatStatus = "booked"
	// SeatReleased marks a seat withdrawn from sale by the organizer.
	SeatReleased SeatStatus = "released"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

type CancelReason string

const (
	CancelNone        CancelReason = ""
	CancelByUser      CancelReason = "user"
	CancelExpired     CancelReason = "expired"
	CancelReleased    CancelReason = "released"
	CancelCompensated CancelReason = "compensated"
)

type PointEntryKind string

const (
	PointDebit  PointEntryKind = "debit"
	PointRefund PointEntryKind = "refund"
)

type User struct {
	ID             int64
	Email          string
	Nickname       string
	RemainingPoint int64
	IsAdmin        bool
}

// Actor is the caller of an operation as asserted by the gateway.
type Actor struct {
	UserID  int64
	IsAdmin bool
}

// Owns reports whether the actor may act on a record owned by userID.
func (a Actor) Owns(userID int64) bool {
	return a.IsAdmin || a.UserID == userID
}

type Concert struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description string
	ImageURL    string
	ConcertTime time.Time
	Category    string
	Location    string
	MaxSeats    int
	Price       int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StartsAfter reports whether the concert begins strictly after t.
func (c *Concert) StartsAfter(t time.Time) bool {
	return c.ConcertTime.After(t)
}

type Seat struct {
	ID            int64
	ConcertID     int64
	Label         string
	Status        SeatStatus
	ReservationID *uuid.UUID
	HoldExpiresAt *time.Time
}

// HoldLapsed reports whether the seat is held and its hold window has
// elapsed at now.
func (s *Seat) HoldLapsed(now time.Time) bool {
	return s.Status == SeatHeld && s.HoldExpiresAt != nil && !s.HoldExpiresAt.After(now)
}

type Reservation struct {
	ID            uuid.UUID
	UserID        int64
	ConcertID     int64
	SeatID        int64
	SeatLabel     string
	Status        ReservationStatus
	Points        int64
	CancelReason  CancelReason
	HoldExpiresAt time.Time
	CreatedAt     time.Time
	ConfirmedAt   *time.Time
	CancelledAt   *time.Time
}

// Active reports whether the reservation still occupies its seat.
func (r *Reservation) Active() bool {
	return r.Status == ReservationPending || r.Status == ReservationConfirmed
}

type PointEntry struct {
	ID            int64
	UserID        int64
	ReservationID uuid.UUID
	Delta         int64
	BalanceAfter  int64
	Kind          PointEntryKind
	CreatedAt     time.Time
}

type SeatCounts struct {
	Available int64
	Held      int64
	Booked    int64
	Released  int64
	Total     int64
}

// ExpiredHold identifies a hold reverted by an expiry pass.
type ExpiredHold struct {
	ReservationID uuid.UUID
	ConcertID     int64
	SeatID        int64
}

// SeatSelector picks either an explicit seat or any available one.
type SeatSelector struct {
	SeatID int64
}

func AnySeat() SeatSelector { return SeatSelector{} }

func SeatByID(id int64) SeatSelector { return SeatSelector{SeatID: id} }

func (s SeatSelector) Any() bool { return s.SeatID == 0 }
