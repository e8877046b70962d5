package admin

import (
	"errors"

	"github.com/kirinyoku/concertix/internal/service/inventory"
)

var (
	ErrForbidden       = errors.New("admin privileges required")
	ErrInvalidConcert  = errors.New("invalid concert")
	ErrOwnerNotFound   = errors.New("concert owner does not exist")
	ErrConcertNotFound = errors.New("concert not found")
	ErrSeatsConflict   = errors.New("some seat labels repeat")

	ErrSeatNotFound    = inventory.ErrSeatNotFound
	ErrSeatUnavailable = inventory.ErrSeatUnavailable
)
