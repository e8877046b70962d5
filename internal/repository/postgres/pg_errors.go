package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/concertix/internal/repository"
)

func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
	}

	return false
}

// markRetryable tags serialization failures and deadlocks with
// repository.ErrTxConflict so callers can retry without importing pgx.
func markRetryable(err error) error {
	if IsRetryable(err) {
		return fmt.Errorf("%w: %w", repository.ErrTxConflict, err)
	}

	return err
}

func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		// unique_violation
		case "23505":
			return fmt.Errorf("%w: %s", repository.ErrConflict, pge.ConstraintName)
		// foreign_key_violation: the referenced row is gone
		case "23503":
			return fmt.Errorf("%w: %s", repository.ErrNotFound, pge.ConstraintName)
		// check_violation on users.remaining_point
		case "23514":
			if pge.ConstraintName == "users_remaining_point_check" {
				return repository.ErrInsufficientBalance
			}
		}
	}

	return err
}

// wrapDBErr maps common DB errors to repository-level errors and wraps them with
// the provided operation name.
func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s:%w", op, translateDBErr(err))
}
