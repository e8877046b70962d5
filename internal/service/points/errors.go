package points

import "errors"

var (
	ErrInsufficientBalance = errors.New("insufficient point balance")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidAmount       = errors.New("point amount must not be negative")
)
