package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository"
)

type UserRepo struct {
	pool DB
	db   DB
}

func (r *UserRepo) With(db DB) *UserRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *UserRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *UserRepo) Get(ctx context.Context, id int64) (*domain.User, error) {
	const op = "postgres.UserRepo.Get"

	db := r.handle()

	var u domain.User
	err := db.QueryRow(ctx,
		`SELECT id, email, nickname, remaining_point, is_admin
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Email, &u.Nickname, &u.RemainingPoint, &u.IsAdmin)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &u, nil
}

// Debit subtracts amount from the balance iff the balance covers it. The
// check and the decrement are one statement.
//
// Returns:
//   - int64: the balance after the debit.
//   - error: repository.ErrInsufficientBalance if the balance is too low.
//   - error: repository.ErrNotFound if the user does not exist.
func (r *UserRepo) Debit(ctx context.Context, id int64, amount int64) (int64, error) {
	const op = "postgres.UserRepo.Debit"

	db := r.handle()

	var balance int64
	err := db.QueryRow(ctx,
		`UPDATE users
		    SET remaining_point = remaining_point - $2
		  WHERE id = $1 AND remaining_point >= $2
		 RETURNING remaining_point`,
		id, amount,
	).Scan(&balance)
	if err == nil {
		return balance, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, wrapDBErr(op, err)
	}

	var exists bool
	if err := db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`,
		id,
	).Scan(&exists); err != nil {
		return 0, wrapDBErr(op, err)
	}

	if !exists {
		return 0, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return 0, fmt.Errorf("%s:%w", op, repository.ErrInsufficientBalance)
}

// Credit adds amount to the balance.
//
// Returns:
//   - int64: the balance after the credit.
//   - error: repository.ErrNotFound if the user does not exist.
func (r *UserRepo) Credit(ctx context.Context, id int64, amount int64) (int64, error) {
	const op = "postgres.UserRepo.Credit"

	db := r.handle()

	var balance int64
	if err := db.QueryRow(ctx,
		`UPDATE users
		    SET remaining_point = remaining_point + $2
		  WHERE id = $1
		 RETURNING remaining_point`,
		id, amount,
	).Scan(&balance); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return balance, nil
}
