package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository/memory"
	redisrepo "github.com/kirinyoku/concertix/internal/repository/redis"
	"github.com/kirinyoku/concertix/internal/service/points"
	"github.com/kirinyoku/concertix/internal/service/query"
)

func seed(t *testing.T) (*memory.Store, int64, []domain.Seat) {
	t.Helper()

	ctx := context.Background()
	store := memory.NewStore()
	store.PutUser(domain.User{ID: 1, IsAdmin: true})
	store.PutUser(domain.User{ID: 10, RemainingPoint: 800})

	id, err := store.Concerts().Create(ctx, &domain.Concert{
		OwnerID:     1,
		Title:       "Jazz Night",
		ConcertTime: time.Now().Add(24 * time.Hour),
		MaxSeats:    3,
		Price:       100,
	})
	require.NoError(t, err)

	_, err = store.Seats().CreateBatch(ctx, id, []string{"A1", "A2", "A3"})
	require.NoError(t, err)

	seats, err := store.Seats().List(ctx, id, false)
	require.NoError(t, err)

	return store, id, seats
}

func TestGetConcert(t *testing.T) {
	store, id, _ := seed(t)
	svc := query.New(store, nil, query.Config{})

	c, err := svc.GetConcert(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night", c.Title)

	_, err = svc.GetConcert(context.Background(), id+1)
	require.ErrorIs(t, err, query.ErrConcertNotFound)
}

func TestAvailabilityAndSeats(t *testing.T) {
	store, id, seats := seed(t)
	svc := query.New(store, nil, query.Config{})
	ctx := context.Background()
	now := time.Now()

	_, err := store.Seats().ClaimByID(ctx, id, seats[0].ID, uuid.New(), now.Add(time.Minute))
	require.NoError(t, err)
	_, err = store.Seats().ClaimByID(ctx, id, seats[1].ID, uuid.New(), now.Add(-time.Second))
	require.NoError(t, err)
	require.NoError(t, store.Seats().Withdraw(ctx, id, seats[2].ID))

	sc, err := svc.Availability(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SeatCounts{Held: 2, Released: 1, Total: 3}, *sc)

	all, err := svc.ListSeats(ctx, id, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// a lapsed hold is claimable even before a sweep reverts it
	avail, err := svc.ListSeats(ctx, id, true)
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Equal(t, seats[1].ID, avail[0].ID)

	_, err = svc.Availability(ctx, id+1)
	require.ErrorIs(t, err, query.ErrConcertNotFound)
}

func TestPointsAndReservations(t *testing.T) {
	store, id, seats := seed(t)
	svc := query.New(store, nil, query.Config{})
	ctx := context.Background()
	now := time.Now()

	older := &domain.Reservation{
		ID: uuid.New(), UserID: 10, ConcertID: id, SeatID: seats[0].ID,
		Status: domain.ReservationPending, HoldExpiresAt: now.Add(time.Minute), CreatedAt: now.Add(-time.Hour),
	}
	newer := &domain.Reservation{
		ID: uuid.New(), UserID: 10, ConcertID: id, SeatID: seats[1].ID,
		Status: domain.ReservationPending, HoldExpiresAt: now.Add(time.Minute), CreatedAt: now,
	}
	require.NoError(t, store.Reservations().Create(ctx, older))
	require.NoError(t, store.Reservations().Create(ctx, newer))

	list, err := svc.ListUserReservations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, "A2", list[0].SeatLabel)

	_, err = points.New(nil).Debit(ctx, store, 10, 100, newer.ID)
	require.NoError(t, err)

	balance, history, err := svc.Points(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(700), balance)
	require.Len(t, history, 1)
	assert.Equal(t, int64(-100), history[0].Delta)

	_, _, err = svc.Points(ctx, 404)
	require.ErrorIs(t, err, query.ErrUserNotFound)
}

func TestGetConcert_ServedFromCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := memory.NewStore()
	svc := query.New(store, redisrepo.NewCache(db), query.Config{})

	mock.ExpectGet(redisrepo.KeyConcertSummary(5)).
		SetVal(`{"ID":5,"Title":"Cached","ConcertTime":"2026-09-01T19:00:00Z","Price":120}`)

	c, err := svc.GetConcert(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Cached", c.Title)
	assert.Equal(t, int64(120), c.Price)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConcert_MissLoadsFromStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := memory.NewStore()
	svc := query.New(store, redisrepo.NewCache(db), query.Config{})

	key := redisrepo.KeyConcertSummary(5)
	mock.ExpectGet(key).RedisNil()
	mock.ExpectGet(key).RedisNil()

	_, err := svc.GetConcert(context.Background(), 5)
	require.ErrorIs(t, err, query.ErrConcertNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
