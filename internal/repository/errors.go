package repository

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrSeatUnavailable     = errors.New("seat unavailable")
	ErrConcertFull         = errors.New("concert full")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrHoldExpired         = errors.New("hold expired")
	ErrStateChanged        = errors.New("state changed")
	// ErrTxConflict marks a transaction aborted by the store's isolation
	// (serialization failure, deadlock). Nothing was committed, so it is
	// safe to run the transaction again.
	ErrTxConflict = errors.New("transaction conflict")
)
