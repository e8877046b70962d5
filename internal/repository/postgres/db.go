package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/concertix/internal/repository"
)

//go:embed schema.sql
var schema string

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Pool is satisfied by *pgxpool.Pool.
type Pool interface {
	DB
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Store struct {
	pool Pool
}

var _ repository.Store = (*Store)(nil)

func NewStore(pool Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	const op = "postgres.Store.Migrate"

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	return s.RunTxWithOpts(ctx, nil, fn)
}

func (s *Store) RunTxWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, txRepos{db: tx}); err != nil {
		return markRetryable(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return markRetryable(fmt.Errorf("commit: %w", err))
	}

	return nil
}

func (s *Store) Concerts() repository.ConcertRepository {
	return &ConcertRepo{pool: s.pool}
}

func (s *Store) Seats() repository.SeatRepository {
	return &SeatRepo{pool: s.pool}
}

func (s *Store) Users() repository.UserRepository {
	return &UserRepo{pool: s.pool}
}

func (s *Store) Reservations() repository.ReservationRepository {
	return &ReservationRepo{pool: s.pool}
}

func (s *Store) Points() repository.PointRepository {
	return &PointRepo{pool: s.pool}
}

// txRepos binds every repository to one open transaction.
type txRepos struct {
	db DB
}

func (t txRepos) Concerts() repository.ConcertRepository {
	return (&ConcertRepo{}).With(t.db)
}

func (t txRepos) Seats() repository.SeatRepository {
	return (&SeatRepo{}).With(t.db)
}

func (t txRepos) Users() repository.UserRepository {
	return (&UserRepo{}).With(t.db)
}

func (t txRepos) Reservations() repository.ReservationRepository {
	return (&ReservationRepo{}).With(t.db)
}

func (t txRepos) Points() repository.PointRepository {
	return (&PointRepo{}).With(t.db)
}
