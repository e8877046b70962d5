package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository"
)

func seedConcert(t *testing.T, s *Store, labels ...string) int64 {
	t.Helper()

	ctx := context.Background()
	s.PutUser(domain.User{ID: 1, IsAdmin: true})

	id, err := s.Concerts().Create(ctx, &domain.Concert{
		OwnerID:     1,
		Title:       "Night Show",
		ConcertTime: time.Now().Add(48 * time.Hour),
		MaxSeats:    len(labels),
		Price:       100,
	})
	require.NoError(t, err)

	n, err := s.Seats().CreateBatch(ctx, id, labels)
	require.NoError(t, err)
	require.Equal(t, int64(len(labels)), n)

	return id
}

func TestRunTx_RollbackDiscardsWrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.PutUser(domain.User{ID: 7, RemainingPoint: 500})

	boom := errors.New("boom")
	err := s.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		_, err := tx.Users().Debit(ctx, 7, 200)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	u, err := s.Users().Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(500), u.RemainingPoint)
}

func TestRunTx_CommitPublishesWrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.PutUser(domain.User{ID: 7, RemainingPoint: 500})

	err := s.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		_, err := tx.Users().Debit(ctx, 7, 200)
		return err
	})
	require.NoError(t, err)

	u, err := s.Users().Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(300), u.RemainingPoint)
}

func TestRunTx_CancelledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.RunTx(ctx, func(context.Context, repository.Repos) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestConcertCreate_UnknownOwner(t *testing.T) {
	s := NewStore()

	_, err := s.Concerts().Create(context.Background(), &domain.Concert{OwnerID: 99, Title: "x"})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSeatCreateBatch_SkipsDuplicateLabels(t *testing.T) {
	s := NewStore()
	concertID := seedConcert(t, s, "A1", "A2")

	n, err := s.Seats().CreateBatch(context.Background(), concertID, []string{"A2", "A3"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	seats, err := s.Seats().List(context.Background(), concertID, false)
	require.NoError(t, err)
	require.Len(t, seats, 3)
	assert.Equal(t, "A3", seats[2].Label)
}

func TestSeatClaimAny_LowestIDFirstThenFull(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	concertID := seedConcert(t, s, "A1", "A2")
	exp := time.Now().Add(time.Minute)

	first, err := s.Seats().ClaimAny(ctx, concertID, uuid.New(), exp)
	require.NoError(t, err)
	second, err := s.Seats().ClaimAny(ctx, concertID, uuid.New(), exp)
	require.NoError(t, err)
	assert.Less(t, first.ID, second.ID)
	assert.Equal(t, domain.SeatHeld, second.Status)

	_, err = s.Seats().ClaimAny(ctx, concertID, uuid.New(), exp)
	require.ErrorIs(t, err, repository.ErrConcertFull)
}

func TestSeatClaimByID(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	concertID := seedConcert(t, s, "A1")
	exp := time.Now().Add(time.Minute)

	seats, _ := s.Seats().List(ctx, concertID, false)
	seatID := seats[0].ID

	_, err := s.Seats().ClaimByID(ctx, concertID, seatID, uuid.New(), exp)
	require.NoError(t, err)

	_, err = s.Seats().ClaimByID(ctx, concertID, seatID, uuid.New(), exp)
	require.ErrorIs(t, err, repository.ErrSeatUnavailable)

	_, err = s.Seats().ClaimByID(ctx, concertID+1, seatID, uuid.New(), exp)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSeatBook_RequiresLiveHoldOfSameReservation(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	concertID := seedConcert(t, s, "A1")
	now := time.Now()
	rid := uuid.New()

	seat, err := s.Seats().ClaimAny(ctx, concertID, rid, now.Add(time.Minute))
	require.NoError(t, err)

	require.ErrorIs(t, s.Seats().Book(ctx, seat.ID, uuid.New(), now), repository.ErrHoldExpired)
	require.ErrorIs(t, s.Seats().Book(ctx, seat.ID, rid, now.Add(time.Minute)), repository.ErrHoldExpired)
	require.NoError(t, s.Seats().Book(ctx, seat.ID, rid, now))

	got, err := s.Seats().Get(ctx, seat.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SeatBooked, got.Status)
	assert.Nil(t, got.HoldExpiresAt)
}

func TestSeatReleaseBooked_StateChanged(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	concertID := seedConcert(t, s, "A1")
	rid := uuid.New()

	seat, err := s.Seats().ClaimAny(ctx, concertID, rid, time.Now().Add(time.Minute))
	require.NoError(t, err)

	// only held, not booked
	require.ErrorIs(t, s.Seats().ReleaseBooked(ctx, seat.ID, rid), repository.ErrStateChanged)

	released, err := s.Seats().ReleaseHold(ctx, seat.ID, rid)
	require.NoError(t, err)
	assert.True(t, released)

	released, err = s.Seats().ReleaseHold(ctx, seat.ID, rid)
	require.NoError(t, err)
	assert.False(t, released)
}

func TestSeatExpireHolds(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	concertID := seedConcert(t, s, "A1", "A2", "A3")
	now := time.Now()

	lapsed := uuid.New()
	_, err := s.Seats().ClaimAny(ctx, concertID, lapsed, now.Add(-time.Second))
	require.NoError(t, err)
	_, err = s.Seats().ClaimAny(ctx, concertID, uuid.New(), now.Add(time.Minute))
	require.NoError(t, err)

	expired, err := s.Seats().ExpireHolds(ctx, 0, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, lapsed, expired[0].ReservationID)
	assert.Equal(t, concertID, expired[0].ConcertID)

	sc, err := s.Seats().Counts(ctx, concertID)
	require.NoError(t, err)
	assert.Equal(t, domain.SeatCounts{Available: 2, Held: 1, Total: 3}, *sc)
}

func TestSeatWithdraw(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	concertID := seedConcert(t, s, "A1", "A2")
	seats, _ := s.Seats().List(ctx, concertID, false)

	_, err := s.Seats().ClaimByID(ctx, concertID, seats[0].ID, uuid.New(), time.Now().Add(time.Minute))
	require.NoError(t, err)

	require.ErrorIs(t, s.Seats().Withdraw(ctx, concertID, seats[0].ID), repository.ErrSeatUnavailable)
	require.ErrorIs(t, s.Seats().Withdraw(ctx, concertID, 999), repository.ErrNotFound)
	require.NoError(t, s.Seats().Withdraw(ctx, concertID, seats[1].ID))

	avail, err := s.Seats().List(ctx, concertID, true)
	require.NoError(t, err)
	assert.Empty(t, avail)
}

func TestUserDebit_ExactBalanceThenInsufficient(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.PutUser(domain.User{ID: 3, RemainingPoint: 100})

	balance, err := s.Users().Debit(ctx, 3, 100)
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = s.Users().Debit(ctx, 3, 1)
	require.ErrorIs(t, err, repository.ErrInsufficientBalance)

	_, err = s.Users().Credit(ctx, 404, 1)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReservationCreate_OneLivePerSeat(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	concertID := seedConcert(t, s, "A1")
	seats, _ := s.Seats().List(ctx, concertID, false)
	now := time.Now()

	first := &domain.Reservation{
		ID: uuid.New(), UserID: 1, ConcertID: concertID, SeatID: seats[0].ID,
		Status: domain.ReservationPending, HoldExpiresAt: now.Add(time.Minute), CreatedAt: now,
	}
	require.NoError(t, s.Reservations().Create(ctx, first))

	second := *first
	second.ID = uuid.New()
	require.ErrorIs(t, s.Reservations().Create(ctx, &second), repository.ErrConflict)

	require.NoError(t, s.Reservations().Cancel(ctx, first.ID, domain.ReservationPending, domain.CancelByUser, now))
	require.NoError(t, s.Reservations().Create(ctx, &second))

	got, err := s.Reservations().Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "A1", got.SeatLabel)
}

func TestReservationConfirmAndCancel_CompareAndSet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	concertID := seedConcert(t, s, "A1")
	seats, _ := s.Seats().List(ctx, concertID, false)
	now := time.Now()

	res := &domain.Reservation{
		ID: uuid.New(), UserID: 1, ConcertID: concertID, SeatID: seats[0].ID,
		Status: domain.ReservationPending, HoldExpiresAt: now.Add(time.Minute), CreatedAt: now,
	}
	require.NoError(t, s.Reservations().Create(ctx, res))

	require.NoError(t, s.Reservations().Confirm(ctx, res.ID, 100, now))
	require.ErrorIs(t, s.Reservations().Confirm(ctx, res.ID, 100, now), repository.ErrStateChanged)

	require.ErrorIs(t,
		s.Reservations().Cancel(ctx, res.ID, domain.ReservationPending, domain.CancelByUser, now),
		repository.ErrStateChanged,
	)
	require.NoError(t, s.Reservations().Cancel(ctx, res.ID, domain.ReservationConfirmed, domain.CancelByUser, now))

	got, err := s.Reservations().Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCancelled, got.Status)
	assert.Equal(t, domain.CancelByUser, got.CancelReason)
	assert.Equal(t, int64(100), got.Points)
	require.NotNil(t, got.CancelledAt)
}

func TestConcertDelete_CascadesAndUnlinksJournal(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	concertID := seedConcert(t, s, "A1")
	seats, _ := s.Seats().List(ctx, concertID, false)
	now := time.Now()

	res := &domain.Reservation{
		ID: uuid.New(), UserID: 1, ConcertID: concertID, SeatID: seats[0].ID,
		Status: domain.ReservationPending, HoldExpiresAt: now.Add(time.Minute), CreatedAt: now,
	}
	require.NoError(t, s.Reservations().Create(ctx, res))
	require.NoError(t, s.Points().Append(ctx, &domain.PointEntry{
		UserID: 1, ReservationID: res.ID, Delta: 10, BalanceAfter: 10, Kind: domain.PointRefund,
	}))

	require.NoError(t, s.Concerts().Delete(ctx, concertID))
	require.ErrorIs(t, s.Concerts().Delete(ctx, concertID), repository.ErrNotFound)

	_, err := s.Reservations().Get(ctx, res.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.Seats().Get(ctx, seats[0].ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	entries, err := s.Points().ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uuid.Nil, entries[0].ReservationID)
}

func TestPointListByUser_NewestFirst(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.PutUser(domain.User{ID: 1})

	for _, d := range []int64{-10, 5, -3} {
		require.NoError(t, s.Points().Append(ctx, &domain.PointEntry{UserID: 1, Delta: d, Kind: domain.PointDebit}))
	}

	entries, err := s.Points().ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(-3), entries[0].Delta)
	assert.Equal(t, int64(3), entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())

	err = s.Points().Append(ctx, &domain.PointEntry{UserID: 2, Delta: 1})
	require.ErrorIs(t, err, repository.ErrNotFound)
}
