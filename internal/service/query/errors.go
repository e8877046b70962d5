package query

import (
	"errors"

	"github.com/kirinyoku/concertix/internal/service/points"
)

var (
	ErrConcertNotFound = errors.New("concert not found")
	ErrUserNotFound    = points.ErrUserNotFound
)
