package admin_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository/memory"
	"github.com/kirinyoku/concertix/internal/service/admin"
	"github.com/kirinyoku/concertix/internal/service/reservation"
	"github.com/kirinyoku/concertix/internal/uow"
)

var (
	root = domain.Actor{UserID: 1, IsAdmin: true}
	fan  = domain.Actor{UserID: 10}
)

func newServices(t *testing.T) (*memory.Store, *admin.Service, *reservation.Service) {
	t.Helper()

	store := memory.NewStore()
	store.PutUser(domain.User{ID: 1, IsAdmin: true})
	store.PutUser(domain.User{ID: 10, RemainingPoint: 1000})

	u := uow.NewUoW(store)
	deps := reservation.Deps{}
	cutoff := time.Hour

	return store, admin.New(u, deps), reservation.New(store, u, deps, reservation.Config{CancelCutoff: &cutoff})
}

func concertInput() admin.NewConcert {
	return admin.NewConcert{
		Title:       "Autumn Tour",
		ConcertTime: time.Now().Add(30 * 24 * time.Hour),
		Location:    "Hall A",
		MaxSeats:    3,
		Price:       250,
	}
}

func TestCreateConcert_GeneralAdmission(t *testing.T) {
	store, svc, _ := newServices(t)
	ctx := context.Background()

	c, err := svc.CreateConcert(ctx, root, concertInput())
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Equal(t, int64(1), c.OwnerID)

	seats, err := store.Seats().List(ctx, c.ID, false)
	require.NoError(t, err)
	require.Len(t, seats, 3)
	assert.Equal(t, "GA-0001", seats[0].Label)
	assert.Equal(t, "GA-0003", seats[2].Label)
}

func TestCreateConcert_Validation(t *testing.T) {
	_, svc, _ := newServices(t)
	ctx := context.Background()

	_, err := svc.CreateConcert(ctx, fan, concertInput())
	require.ErrorIs(t, err, admin.ErrForbidden)

	cases := map[string]func(in *admin.NewConcert){
		"blank title":    func(in *admin.NewConcert) { in.Title = "  " },
		"no seats":       func(in *admin.NewConcert) { in.MaxSeats = 0 },
		"negative price": func(in *admin.NewConcert) { in.Price = -1 },
		"in the past":    func(in *admin.NewConcert) { in.ConcertTime = time.Now().Add(-time.Hour) },
		"label mismatch": func(in *admin.NewConcert) { in.SeatLabels = []string{"A1"} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := concertInput()
			mutate(&in)

			_, err := svc.CreateConcert(ctx, root, in)
			require.ErrorIs(t, err, admin.ErrInvalidConcert)
		})
	}
}

func TestCreateConcert_DuplicateLabelsRollBack(t *testing.T) {
	store, svc, _ := newServices(t)
	ctx := context.Background()

	in := concertInput()
	in.SeatLabels = []string{"A1", "A2", "A1"}

	_, err := svc.CreateConcert(ctx, root, in)
	require.ErrorIs(t, err, admin.ErrSeatsConflict)

	// nothing from the failed transaction is visible
	_, err = store.Concerts().Get(ctx, 1)
	require.Error(t, err)
}

func TestCreateConcert_UnknownOwner(t *testing.T) {
	_, svc, _ := newServices(t)

	_, err := svc.CreateConcert(context.Background(), domain.Actor{UserID: 77, IsAdmin: true}, concertInput())
	require.ErrorIs(t, err, admin.ErrOwnerNotFound)
}

func TestDeleteConcert_RefundsConfirmed(t *testing.T) {
	store, svc, res := newServices(t)
	ctx := context.Background()

	c, err := svc.CreateConcert(ctx, root, concertInput())
	require.NoError(t, err)

	booked, err := res.Reserve(ctx, 10, c.ID, domain.AnySeat())
	require.NoError(t, err)
	_, err = res.Hold(ctx, 10, c.ID, domain.AnySeat(), 0)
	require.NoError(t, err)

	u, _ := store.Users().Get(ctx, 10)
	require.Equal(t, int64(750), u.RemainingPoint)

	n, err := svc.DeleteConcert(ctx, root, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	u, _ = store.Users().Get(ctx, 10)
	assert.Equal(t, int64(1000), u.RemainingPoint)

	_, err = store.Reservations().Get(ctx, booked.ID)
	require.Error(t, err)

	_, err = svc.DeleteConcert(ctx, root, c.ID)
	require.ErrorIs(t, err, admin.ErrConcertNotFound)

	_, err = svc.DeleteConcert(ctx, fan, c.ID)
	require.ErrorIs(t, err, admin.ErrForbidden)
}

func TestWithdrawSeat(t *testing.T) {
	store, svc, res := newServices(t)
	ctx := context.Background()

	c, err := svc.CreateConcert(ctx, root, concertInput())
	require.NoError(t, err)
	seats, _ := store.Seats().List(ctx, c.ID, false)

	_, err = res.Hold(ctx, 10, c.ID, domain.SeatByID(seats[0].ID), 0)
	require.NoError(t, err)

	require.ErrorIs(t, svc.WithdrawSeat(ctx, root, c.ID, seats[0].ID), admin.ErrSeatUnavailable)
	require.ErrorIs(t, svc.WithdrawSeat(ctx, root, c.ID, 999), admin.ErrSeatNotFound)
	require.ErrorIs(t, svc.WithdrawSeat(ctx, fan, c.ID, seats[1].ID), admin.ErrForbidden)
	require.NoError(t, svc.WithdrawSeat(ctx, root, c.ID, seats[1].ID))

	got, err := store.Seats().Get(ctx, seats[1].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SeatReleased, got.Status)
}
