package uow

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kirinyoku/concertix/internal/repository"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// UoW represents a unit of work.
type UoW struct {
	store      repository.Store
	maxRetries uint64
	backoff    func() backoff.BackOff
}

type Option func(*UoW)

// WithMaxRetries bounds how many times a conflicting transaction is rerun.
func WithMaxRetries(n int) Option {
	return func(u *UoW) {
		if n >= 0 {
			u.maxRetries = uint64(n)
		}
	}
}

// WithBackOff replaces the delay policy between retries.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(u *UoW) { u.backoff = f }
}

func NewUoW(store repository.Store, opts ...Option) *UoW {
	u := &UoW{
		store:      store,
		maxRetries: 5,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 5 * time.Millisecond
			b.MaxInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 2 * time.Second
			return b
		},
	}

	for _, o := range opts {
		o(u)
	}

	return u
}

// Do runs fn inside the transaction. A transaction that fails with
// repository.ErrTxConflict is rerun from scratch; hooks registered by a
// failed attempt are dropped. After a successful commit it executes the
// hooks of the committed attempt.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repos, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	attempt := func() error {
		hooks = hooks[:0]

		err := u.store.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err != nil && !errors.Is(err, repository.ErrTxConflict) {
			return backoff.Permanent(err)
		}

		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(u.backoff(), u.maxRetries), ctx)

	if err := backoff.Retry(attempt, policy); err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
