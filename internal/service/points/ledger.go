// Package points keeps user point balances. Every balance change is a
// conditional store update paired with a journal entry in the same
// transaction.
package points

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository"
)

type Ledger struct {
	now func() time.Time
}

func New(clock func() time.Time) *Ledger {
	if clock == nil {
		clock = time.Now
	}

	return &Ledger{now: clock}
}

// Debit takes amount points from the user for reservationID.
//
// Returns:
//   - int64: the balance after the debit.
//   - error: points.ErrInsufficientBalance if amount exceeds the balance.
//   - error: points.ErrUserNotFound if the user does not exist.
//   - error: points.ErrInvalidAmount if amount is negative.
func (l *Ledger) Debit(
	ctx context.Context,
	tx repository.Repos,
	userID, amount int64,
	reservationID uuid.UUID,
) (int64, error) {
	const op = "service.points.Debit"

	if amount < 0 {
		return 0, fmt.Errorf("%s:%w", op, ErrInvalidAmount)
	}

	balance, err := tx.Users().Debit(ctx, userID, amount)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientBalance):
			return 0, fmt.Errorf("%s:%w", op, ErrInsufficientBalance)
		case errors.Is(err, repository.ErrNotFound):
			return 0, fmt.Errorf("%s:%w", op, ErrUserNotFound)
		}

		return 0, fmt.Errorf("%s:%w", op, err)
	}

	if err := l.record(ctx, tx, userID, -amount, balance, domain.PointDebit, reservationID); err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return balance, nil
}

// Credit returns amount points to the user for reservationID.
func (l *Ledger) Credit(
	ctx context.Context,
	tx repository.Repos,
	userID, amount int64,
	reservationID uuid.UUID,
) (int64, error) {
	const op = "service.points.Credit"

	if amount < 0 {
		return 0, fmt.Errorf("%s:%w", op, ErrInvalidAmount)
	}

	balance, err := tx.Users().Credit(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s:%w", op, ErrUserNotFound)
		}

		return 0, fmt.Errorf("%s:%w", op, err)
	}

	if err := l.record(ctx, tx, userID, amount, balance, domain.PointRefund, reservationID); err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return balance, nil
}

// free concerts move no points and leave no journal entry
func (l *Ledger) record(
	ctx context.Context,
	tx repository.Repos,
	userID, delta, balance int64,
	kind domain.PointEntryKind,
	reservationID uuid.UUID,
) error {
	if delta == 0 {
		return nil
	}

	return tx.Points().Append(ctx, &domain.PointEntry{
		UserID:        userID,
		ReservationID: reservationID,
		Delta:         delta,
		BalanceAfter:  balance,
		Kind:          kind,
		CreatedAt:     l.now(),
	})
}

func (l *Ledger) Balance(ctx context.Context, repos repository.Repos, userID int64) (int64, error) {
	const op = "service.points.Balance"

	u, err := repos.Users().Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s:%w", op, ErrUserNotFound)
		}

		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return u.RemainingPoint, nil
}

// History lists the user's journal, newest first.
func (l *Ledger) History(ctx context.Context, repos repository.Repos, userID int64) ([]domain.PointEntry, error) {
	const op = "service.points.History"

	entries, err := repos.Points().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return entries, nil
}
