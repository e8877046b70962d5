package postgres

import (
	"context"

	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/repository"
)

type ConcertRepo struct {
	pool DB
	db   DB
}

func (r *ConcertRepo) With(db DB) *ConcertRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ConcertRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Get retrieves a concert by its ID.
//
// Returns:
//   - *domain.Concert: the concert when found.
//   - error: repository.ErrNotFound if the concert is not found.
func (r *ConcertRepo) Get(ctx context.Context, id int64) (*domain.Concert, error) {
	const op = "postgres.ConcertRepo.Get"

	db := r.handle()

	var c domain.Concert
	err := db.QueryRow(ctx,
		`SELECT id, owner_id, title, description, image_url, concert_time,
		        category, location, max_seats, price, created_at, updated_at
		 FROM concerts WHERE id = $1`,
		id,
	).Scan(
		&c.ID,
		&c.OwnerID,
		&c.Title,
		&c.Description,
		&c.ImageURL,
		&c.ConcertTime,
		&c.Category,
		&c.Location,
		&c.MaxSeats,
		&c.Price,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &c, nil
}

func (r *ConcertRepo) Create(ctx context.Context, c *domain.Concert) (int64, error) {
	const op = "postgres.ConcertRepo.Create"

	db := r.handle()

	if err := db.QueryRow(ctx,
		`INSERT INTO concerts(owner_id, title, description, image_url, concert_time,
		                      category, location, max_seats, price)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		c.OwnerID, c.Title, c.Description, c.ImageURL, c.ConcertTime,
		c.Category, c.Location, c.MaxSeats, c.Price,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return c.ID, nil
}

// Delete removes a concert and everything hanging off it. Point journal
// rows survive with their reservation link cleared.
//
// Returns:
//   - error: repository.ErrNotFound if the concert is not found.
func (r *ConcertRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.ConcertRepo.Delete"

	db := r.handle()

	if _, err := db.Exec(ctx, `DELETE FROM reservations WHERE concert_id = $1`, id); err != nil {
		return wrapDBErr(op, err)
	}

	if _, err := db.Exec(ctx, `DELETE FROM seats WHERE concert_id = $1`, id); err != nil {
		return wrapDBErr(op, err)
	}

	tag, err := db.Exec(ctx, `DELETE FROM concerts WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}
