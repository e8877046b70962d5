package inventory

import "errors"

var (
	ErrSeatUnavailable  = errors.New("seat is not available")
	ErrConcertFull      = errors.New("no seats remain for the concert")
	ErrSeatNotFound     = errors.New("seat not found")
	ErrHoldLapsed       = errors.New("seat hold has lapsed")
	ErrSeatStateChanged = errors.New("seat is no longer booked by the reservation")
)
