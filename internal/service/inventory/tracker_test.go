package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository"
	"github.com/kirinyoku/concertix/internal/repository/memory"
	"github.com/kirinyoku/concertix/internal/service/inventory"
)

func setup(t *testing.T, labels ...string) (*memory.Store, int64, []domain.Seat) {
	t.Helper()

	ctx := context.Background()
	store := memory.NewStore()
	store.PutUser(domain.User{ID: 1, IsAdmin: true})

	concertID, err := store.Concerts().Create(ctx, &domain.Concert{
		OwnerID:     1,
		Title:       "Arena",
		ConcertTime: time.Now().Add(72 * time.Hour),
		MaxSeats:    len(labels),
	})
	require.NoError(t, err)

	_, err = store.Seats().CreateBatch(ctx, concertID, labels)
	require.NoError(t, err)

	seats, err := store.Seats().List(ctx, concertID, false)
	require.NoError(t, err)

	return store, concertID, seats
}

func pending(concertID, seatID int64, id uuid.UUID, expiresAt time.Time) *domain.Reservation {
	return &domain.Reservation{
		ID:            id,
		UserID:        1,
		ConcertID:     concertID,
		SeatID:        seatID,
		Status:        domain.ReservationPending,
		HoldExpiresAt: expiresAt,
		CreatedAt:     expiresAt.Add(-time.Minute),
	}
}

func TestTryClaim_ErrorsMapToInventory(t *testing.T) {
	store, concertID, seats := setup(t, "A1")
	tr := inventory.New(nil)
	ctx := context.Background()
	now := time.Now()

	_, _, err := tr.TryClaim(ctx, store, concertID, domain.SeatByID(999), uuid.New(), now.Add(time.Minute), now)
	require.ErrorIs(t, err, inventory.ErrSeatNotFound)

	_, _, err = tr.TryClaim(ctx, store, concertID, domain.SeatByID(seats[0].ID), uuid.New(), now.Add(time.Minute), now)
	require.NoError(t, err)

	_, _, err = tr.TryClaim(ctx, store, concertID, domain.SeatByID(seats[0].ID), uuid.New(), now.Add(time.Minute), now)
	require.ErrorIs(t, err, inventory.ErrSeatUnavailable)

	_, _, err = tr.TryClaim(ctx, store, concertID, domain.AnySeat(), uuid.New(), now.Add(time.Minute), now)
	require.ErrorIs(t, err, inventory.ErrConcertFull)
}

func TestTryClaim_ReclaimsLapsedHoldFirst(t *testing.T) {
	store, concertID, seats := setup(t, "A1")
	tr := inventory.New(nil)
	ctx := context.Background()
	now := time.Now()

	stale := uuid.New()
	err := store.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		seat, _, err := tr.TryClaim(ctx, tx, concertID, domain.AnySeat(), stale, now.Add(time.Minute), now)
		if err != nil {
			return err
		}
		return tx.Reservations().Create(ctx, pending(concertID, seat.ID, stale, now.Add(time.Minute)))
	})
	require.NoError(t, err)

	later := now.Add(2 * time.Minute)
	fresh := uuid.New()

	var reclaimed []domain.ExpiredHold
	err = store.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		seat, r, err := tr.TryClaim(ctx, tx, concertID, domain.AnySeat(), fresh, later.Add(time.Minute), later)
		if err != nil {
			return err
		}
		reclaimed = r
		assert.Equal(t, seats[0].ID, seat.ID)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, stale, reclaimed[0].ReservationID)

	old, err := store.Reservations().Get(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCancelled, old.Status)
	assert.Equal(t, domain.CancelExpired, old.CancelReason)
}

func TestBook_LapsedHold(t *testing.T) {
	store, concertID, _ := setup(t, "A1")
	tr := inventory.New(nil)
	ctx := context.Background()
	now := time.Now()
	rid := uuid.New()

	seat, _, err := tr.TryClaim(ctx, store, concertID, domain.AnySeat(), rid, now.Add(time.Minute), now)
	require.NoError(t, err)

	require.ErrorIs(t, tr.Book(ctx, store, seat.ID, rid, now.Add(time.Hour)), inventory.ErrHoldLapsed)
	require.NoError(t, tr.Book(ctx, store, seat.ID, rid, now))

	require.ErrorIs(t, tr.ReleaseBooked(ctx, store, seat.ID, uuid.New()), inventory.ErrSeatStateChanged)
	require.NoError(t, tr.ReleaseBooked(ctx, store, seat.ID, rid))

	sc, err := tr.Counts(ctx, store, concertID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sc.Available)
}

func TestReleaseHold_IsIdempotent(t *testing.T) {
	store, concertID, _ := setup(t, "A1")
	tr := inventory.New(nil)
	ctx := context.Background()
	now := time.Now()
	rid := uuid.New()

	seat, _, err := tr.TryClaim(ctx, store, concertID, domain.AnySeat(), rid, now.Add(time.Minute), now)
	require.NoError(t, err)

	ok, err := tr.ReleaseHold(ctx, store, seat.ID, rid)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tr.ReleaseHold(ctx, store, seat.ID, rid)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWithdraw(t *testing.T) {
	store, concertID, seats := setup(t, "A1", "A2")
	tr := inventory.New(nil)
	ctx := context.Background()
	now := time.Now()

	_, _, err := tr.TryClaim(ctx, store, concertID, domain.SeatByID(seats[0].ID), uuid.New(), now.Add(time.Minute), now)
	require.NoError(t, err)

	require.ErrorIs(t, tr.Withdraw(ctx, store, concertID, seats[0].ID), inventory.ErrSeatUnavailable)
	require.ErrorIs(t, tr.Withdraw(ctx, store, concertID, 999), inventory.ErrSeatNotFound)
	require.NoError(t, tr.Withdraw(ctx, store, concertID, seats[1].ID))

	// withdrawn seats are never claimed again
	_, _, err = tr.TryClaim(ctx, store, concertID, domain.AnySeat(), uuid.New(), now.Add(time.Minute), now)
	require.ErrorIs(t, err, inventory.ErrConcertFull)

	sc, err := tr.Counts(ctx, store, concertID)
	require.NoError(t, err)
	assert.Equal(t, domain.SeatCounts{Held: 1, Released: 1, Total: 2}, *sc)
}
