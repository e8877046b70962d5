package httpgin

import (
	"time"

	"github.com/kirinyoku/concertix/internal/domain"
)

type ReserveRequest struct {
	// SeatID 0 or omitted takes any available seat.
	SeatID int64 `json:"seat_id" binding:"gte=0"`
}

type HoldRequest struct {
	SeatID int64 `json:"seat_id" binding:"gte=0"`
	TTLSec int   `json:"ttl_sec" binding:"gte=0"`
}

type CreateConcertRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url" binding:"omitempty,url"`
	ConcertTime time.Time `json:"concert_time" binding:"required"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	MaxSeats    int       `json:"max_seats" binding:"required,gt=0"`
	Price       int64     `json:"price" binding:"gte=0"`
	SeatLabels  []string  `json:"seat_labels" binding:"omitempty,dive,required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ConcertResponse struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	ConcertTime time.Time `json:"concert_time"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	MaxSeats    int       `json:"max_seats"`
	Price       int64     `json:"price"`
}

func toConcertResponse(c *domain.Concert) ConcertResponse {
	return ConcertResponse{
		ID:          c.ID,
		OwnerID:     c.OwnerID,
		Title:       c.Title,
		Description: c.Description,
		ImageURL:    c.ImageURL,
		ConcertTime: c.ConcertTime,
		Category:    c.Category,
		Location:    c.Location,
		MaxSeats:    c.MaxSeats,
		Price:       c.Price,
	}
}

type AvailabilityResponse struct {
	Available int64 `json:"available"`
	Held      int64 `json:"held"`
	Booked    int64 `json:"booked"`
	Released  int64 `json:"released"`
	Total     int64 `json:"total"`
}

type SeatResponse struct {
	ID            int64      `json:"id"`
	Label         string     `json:"label"`
	Status        string     `json:"status"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
}

type ReservationResponse struct {
	ID            string     `json:"id"`
	UserID        int64      `json:"user_id"`
	ConcertID     int64      `json:"concert_id"`
	SeatID        int64      `json:"seat_id"`
	SeatLabel     string     `json:"seat_label"`
	Status        string     `json:"status"`
	Points        int64      `json:"points"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
	HoldExpiresAt time.Time  `json:"hold_expires_at"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

func toReservationResponse(r *domain.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:            r.ID.String(),
		UserID:        r.UserID,
		ConcertID:     r.ConcertID,
		SeatID:        r.SeatID,
		SeatLabel:     r.SeatLabel,
		Status:        string(r.Status),
		Points:        r.Points,
		CancelReason:  string(r.CancelReason),
		HoldExpiresAt: r.HoldExpiresAt,
		CreatedAt:     r.CreatedAt,
		ConfirmedAt:   r.ConfirmedAt,
		CancelledAt:   r.CancelledAt,
	}
}

type PointEntryResponse struct {
	ID            int64     `json:"id"`
	ReservationID string    `json:"reservation_id,omitempty"`
	Delta         int64     `json:"delta"`
	BalanceAfter  int64     `json:"balance_after"`
	Kind          string    `json:"kind"`
	CreatedAt     time.Time `json:"created_at"`
}

type PointsResponse struct {
	Balance int64                `json:"balance"`
	History []PointEntryResponse `json:"history"`
}

type CreateConcertResponse struct {
	ConcertID int64 `json:"concert_id"`
	Seats     int   `json:"seats"`
}

type DeleteConcertResponse struct {
	Refunded int `json:"refunded"`
}
