package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache stores read-model views of concerts as JSON. Loads for the same key
// are collapsed so a cold key hits the store once per replica.
type Cache struct {
	rdb   *redis.Client
	loads singleflight.Group
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

// lookup reports a miss for absent and undecodable entries alike.
func lookup[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var v T

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return v, false, nil
	case err != nil:
		return v, false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if json.Unmarshal(raw, &v) != nil {
		return v, false, nil
	}

	return v, true, nil
}

func store(ctx context.Context, c *Cache, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, string(b), ttl).Err()
}

// GetOrSetJSON returns the cached value under key, or calls load and caches
// its result for ttl. Errors from load are returned and never cached.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	const op = "repository.redis.GetOrSetJSON"

	var zero T

	if v, ok, err := lookup[T](ctx, c, key); err != nil || ok {
		return v, err
	}

	shared, err, _ := c.loads.Do(key, func() (any, error) {
		// another caller may have filled it while we queued
		if v, ok, err := lookup[T](ctx, c, key); err != nil || ok {
			return v, err
		}

		v, err := load(ctx)
		if err != nil {
			return nil, err
		}

		// a failed write only costs the next reader a reload
		_ = store(ctx, c, key, v, ttl)

		return v, nil
	})
	if err != nil {
		return zero, fmt.Errorf("%s:%w", op, err)
	}

	v, ok := shared.(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected value type %T", op, shared)
	}

	return v, nil
}

// InvalidateConcert drops every cached view of the concert.
func (c *Cache) InvalidateConcert(ctx context.Context, concertID int64) error {
	return c.rdb.Del(
		ctx,
		KeyConcertSummary(concertID),
		KeyConcertAvailability(concertID),
		KeyConcertSeatMap(concertID),
	).Err()
}
