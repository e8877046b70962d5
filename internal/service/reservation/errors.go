package reservation

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/concertix/internal/service/inventory"
	"github.com/kirinyoku/concertix/internal/service/points"
)

var (
	ErrConcertNotFound          = errors.New("concert not found")
	ErrConcertExpired           = errors.New("concert has already started")
	ErrReservationNotFound      = errors.New("reservation not found")
	ErrNotOwner                 = errors.New("reservation belongs to another user")
	ErrAlreadyCancelled         = errors.New("reservation is already cancelled")
	ErrCancellationWindowClosed = errors.New("cancellation window has closed")
	ErrHoldNotFound             = errors.New("hold not found")
	ErrHoldExpired              = errors.New("hold is expired")
	ErrRateLimited              = errors.New("rate limited")

	ErrSeatUnavailable     = inventory.ErrSeatUnavailable
	ErrSeatNotFound        = inventory.ErrSeatNotFound
	ErrConcertFull         = inventory.ErrConcertFull
	ErrInsufficientBalance = points.ErrInsufficientBalance
	ErrUserNotFound        = points.ErrUserNotFound
)

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

func (e RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
