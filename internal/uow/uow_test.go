package uow_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/concertix/internal/repository"
	"github.com/kirinyoku/concertix/internal/repository/memory"
	"github.com/kirinyoku/concertix/internal/uow"
)

// conflictingStore fails the first n transactions with a serialization
// conflict after running their body.
type conflictingStore struct {
	*memory.Store
	n     int
	calls int
}

func (s *conflictingStore) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	s.calls++

	return s.Store.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}

		if s.calls <= s.n {
			return fmt.Errorf("commit: %w", repository.ErrTxConflict)
		}

		return nil
	})
}

func noDelay() backoff.BackOff { return &backoff.ZeroBackOff{} }

func TestDo_RetriesConflictsAndRunsHooksOnce(t *testing.T) {
	store := &conflictingStore{Store: memory.NewStore(), n: 2}
	u := uow.NewUoW(store, uow.WithBackOff(noDelay))

	var hooks int
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		after(func(context.Context) { hooks++ })
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)
	assert.Equal(t, 1, hooks)
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	store := &conflictingStore{Store: memory.NewStore(), n: 100}
	u := uow.NewUoW(store, uow.WithBackOff(noDelay), uow.WithMaxRetries(2))

	var hooks int
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		after(func(context.Context) { hooks++ })
		return nil
	})
	require.ErrorIs(t, err, repository.ErrTxConflict)
	assert.Equal(t, 3, store.calls)
	assert.Zero(t, hooks)
}

func TestDo_OtherErrorsAreNotRetried(t *testing.T) {
	store := &conflictingStore{Store: memory.NewStore()}
	u := uow.NewUoW(store, uow.WithBackOff(noDelay))

	boom := errors.New("boom")
	var hooks int
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		after(func(context.Context) { hooks++ })
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, store.calls)
	assert.Zero(t, hooks)
}
