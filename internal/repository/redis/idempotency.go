package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLock      = "LOCK"
	idemResPrefix = "RES:"
)

type IdemState int

const (
	// IdemNew means the caller now owns the key and must Complete or Abort.
	IdemNew IdemState = iota
	// IdemInFlight means another request with the same key is running.
	IdemInFlight
	// IdemDone means a stored response is available.
	IdemDone
)

// IdempotencyStore remembers the response of a keyed request so a retry
// replays it instead of reserving a second seat.
type IdempotencyStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl, lockTTL time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl, lockTTL: lockTTL}
}

// Begin claims key. When the key already carries a finished response it
// is returned along with IdemDone.
func (s *IdempotencyStore) Begin(ctx context.Context, key string) (IdemState, string, error) {
	ok, err := s.rdb.SetNX(ctx, key, idemLock, s.lockTTL).Result()
	if err != nil {
		return 0, "", err
	}

	if ok {
		return IdemNew, "", nil
	}

	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// lock lapsed between the two calls
		return IdemInFlight, "", nil
	}
	if err != nil {
		return 0, "", err
	}

	if payload, found := strings.CutPrefix(v, idemResPrefix); found {
		return IdemDone, payload, nil
	}

	return IdemInFlight, "", nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, jsonPayload string) error {
	return s.rdb.Set(ctx, key, idemResPrefix+jsonPayload, s.ttl).Err()
}

// Abort releases the key so the request may be retried.
func (s *IdempotencyStore) Abort(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
