package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Sliding window log kept in a sorted set scored by hit time. Denied hits
// are not recorded, so a caller that keeps retrying is not locked out past
// the window.
//
// KEYS[1] bucket, ARGV: now_ms, window_ms, max_hits, hit id.
// Returns {allowed, hits in window, retry_after_ms}.
const luaSlidingWindow = `
local bucket = KEYS[1]
local now_ms = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local max_hits = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', bucket, '-inf', now_ms - window_ms)

local hits = redis.call('ZCARD', bucket)
if hits >= max_hits then
  local oldest = redis.call('ZRANGE', bucket, 0, 0, 'WITHSCORES')
  local wait = window_ms
  if oldest[2] then
    wait = tonumber(oldest[2]) + window_ms - now_ms
  end
  if wait < 0 then wait = 0 end
  return {0, hits, wait}
end

redis.call('ZADD', bucket, now_ms, ARGV[4])
redis.call('PEXPIRE', bucket, window_ms)
return {1, hits + 1, 0}
`

// Decision is the outcome of one limiter hit.
type Decision struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

type SlidingWindowLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int
	window time.Duration
	script *redis.Script
	now    func() time.Time
	member func() string
}

// NewSlidingWindowLimiter allows limit hits per window for every id within
// scope.
func NewSlidingWindowLimiter(
	rdb *redis.Client,
	scope string,
	limit int,
	window time.Duration,
) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  limit,
		window: window,
		script: redis.NewScript(luaSlidingWindow),
		now:    time.Now,
		member: uuid.NewString,
	}
}

// Allow records a hit for id when the window has room.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, id string) (Decision, error) {
	const op = "repository.redis.SlidingWindowLimiter.Allow"

	res, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{KeyRateLimit(l.scope, id)},
		l.now().UnixMilli(), l.window.Milliseconds(), l.limit, l.member(),
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%s:%w", op, err)
	}

	vals, err := decisionFields(res)
	if err != nil {
		return Decision{}, fmt.Errorf("%s:%w", op, err)
	}

	return Decision{
		Allowed:    vals[0] == 1,
		Count:      vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

func decisionFields(res any) ([3]int64, error) {
	var out [3]int64

	arr, ok := res.([]any)
	if !ok || len(arr) != len(out) {
		return out, fmt.Errorf("unexpected script result %v", res)
	}

	for i, v := range arr {
		n, ok := v.(int64)
		if !ok {
			return out, fmt.Errorf("unexpected script field %T", v)
		}
		out[i] = n
	}

	return out, nil
}
