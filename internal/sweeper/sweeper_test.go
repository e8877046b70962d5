package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (e *countingExpirer) Expire(ctx context.Context) (int, error) {
	e.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep without deadline")
	}
	return 1, e.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweeper_RunsUntilCancelled(t *testing.T) {
	exp := &countingExpirer{}
	s, err := New(exp, 20*time.Millisecond, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return exp.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}

	stopped := exp.calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, stopped, exp.calls.Load())
}

func TestSweeper_KeepsGoingAfterErrors(t *testing.T) {
	exp := &countingExpirer{err: errors.New("db down")}
	s, err := New(exp, 20*time.Millisecond, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return exp.calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestNew_DefaultsInterval(t *testing.T) {
	s, err := New(&countingExpirer{}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, s.interval)
	assert.NotNil(t, s.log)
}
