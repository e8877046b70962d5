package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository"
)

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock, NewStore(mock)
}

var serializable = pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite}

func TestUserDebit(t *testing.T) {
	mock, store := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(`UPDATE users`).
		WithArgs(int64(1), int64(100)).
		WillReturnRows(pgxmock.NewRows([]string{"remaining_point"}).AddRow(int64(900)))

	balance, err := store.Users().Debit(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDebit_InsufficientOrMissing(t *testing.T) {
	cases := []struct {
		name   string
		exists bool
		want   error
	}{
		{"insufficient", true, repository.ErrInsufficientBalance},
		{"missing user", false, repository.ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock, store := newMock(t)

			mock.ExpectQuery(`UPDATE users`).
				WithArgs(int64(1), int64(100)).
				WillReturnError(pgx.ErrNoRows)
			mock.ExpectQuery(`SELECT EXISTS`).
				WithArgs(int64(1)).
				WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tc.exists))

			_, err := store.Users().Debit(context.Background(), 1, 100)
			require.ErrorIs(t, err, tc.want)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserGet_NotFound(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectQuery(`SELECT id, email, nickname, remaining_point, is_admin`).
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Users().Get(context.Background(), 9)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSeatClaimAny(t *testing.T) {
	mock, store := newMock(t)
	ctx := context.Background()
	rid := uuid.New()
	exp := time.Now().Add(time.Minute)

	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs(int64(3), rid, exp).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "concert_id", "label", "status", "reservation_id", "hold_expires_at",
		}).AddRow(int64(11), int64(3), "A1", "held", &rid, &exp))

	seat, err := store.Seats().ClaimAny(ctx, 3, rid, exp)
	require.NoError(t, err)
	assert.Equal(t, int64(11), seat.ID)
	assert.Equal(t, domain.SeatHeld, seat.Status)
	require.NotNil(t, seat.ReservationID)
	assert.Equal(t, rid, *seat.ReservationID)

	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs(int64(3), rid, exp).
		WillReturnError(pgx.ErrNoRows)

	_, err = store.Seats().ClaimAny(ctx, 3, rid, exp)
	require.ErrorIs(t, err, repository.ErrConcertFull)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatClaimByID_Taken(t *testing.T) {
	mock, store := newMock(t)
	rid := uuid.New()
	exp := time.Now().Add(time.Minute)

	mock.ExpectQuery(`UPDATE seats`).
		WithArgs(int64(3), int64(11), rid, exp).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(3), int64(11)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := store.Seats().ClaimByID(context.Background(), 3, 11, rid, exp)
	require.ErrorIs(t, err, repository.ErrSeatUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatBook_LapsedHold(t *testing.T) {
	mock, store := newMock(t)
	rid := uuid.New()

	mock.ExpectExec(`SET status = 'booked'`).
		WithArgs(int64(11), rid, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Seats().Book(context.Background(), 11, rid, time.Now())
	require.ErrorIs(t, err, repository.ErrHoldExpired)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationCancel_CompareAndSet(t *testing.T) {
	mock, store := newMock(t)
	rid := uuid.New()

	mock.ExpectExec(`UPDATE reservations`).
		WithArgs(rid, "confirmed", "user", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE reservations`).
		WithArgs(rid, "confirmed", "user", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := store.Reservations()
	require.NoError(t, repo.Cancel(context.Background(), rid, domain.ReservationConfirmed, domain.CancelByUser, time.Now()))

	err := repo.Cancel(context.Background(), rid, domain.ReservationConfirmed, domain.CancelByUser, time.Now())
	require.ErrorIs(t, err, repository.ErrStateChanged)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPointAppend_WithoutReservation(t *testing.T) {
	mock, store := newMock(t)
	at := time.Now()

	mock.ExpectQuery(`INSERT INTO point_entries`).
		WithArgs(int64(1), (*uuid.UUID)(nil), int64(50), int64(150), "refund", at).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	e := &domain.PointEntry{UserID: 1, Delta: 50, BalanceAfter: 150, Kind: domain.PointRefund, CreatedAt: at}
	require.NoError(t, store.Points().Append(context.Background(), e))
	assert.Equal(t, int64(7), e.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunTx_CommitsOnSuccess(t *testing.T) {
	mock, store := newMock(t)
	rid := uuid.New()

	mock.ExpectBeginTx(serializable)
	mock.ExpectExec(`SET status = 'available'`).
		WithArgs(int64(11), rid).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := store.RunTx(context.Background(), func(ctx context.Context, tx repository.Repos) error {
		ok, err := tx.Seats().ReleaseHold(ctx, 11, rid)
		assert.True(t, ok)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunTx_RollsBackOnError(t *testing.T) {
	mock, store := newMock(t)

	boom := errors.New("boom")
	mock.ExpectBeginTx(serializable)
	mock.ExpectRollback()

	err := store.RunTx(context.Background(), func(context.Context, repository.Repos) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, repository.ErrTxConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunTx_SerializationFailureIsRetryable(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectBeginTx(serializable)
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001"})

	err := store.RunTx(context.Background(), func(context.Context, repository.Repos) error {
		return nil
	})
	require.ErrorIs(t, err, repository.ErrTxConflict)
}

func TestTranslateDBErr(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, repository.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "seats_concert_id_label_key"}, repository.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: "23503", ConstraintName: "concerts_owner_id_fkey"}, repository.ErrNotFound},
		{"balance check", &pgconn.PgError{Code: "23514", ConstraintName: "users_remaining_point_check"}, repository.ErrInsufficientBalance},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, translateDBErr(tc.in), tc.want)
		})
	}

	other := &pgconn.PgError{Code: "23514", ConstraintName: "something_else"}
	assert.Equal(t, error(other), translateDBErr(other))

	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsRetryable(errors.New("plain")))
}
