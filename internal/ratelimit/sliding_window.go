package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims the sorted set to the window, then admits the hit
// if there is room. Returns {allowed, remaining, reset_at_ms}.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current = redis.call('ZCARD', key)

	if current < limit then
		local counter = redis.call('INCR', key .. ':counter')
		redis.call('ZADD', key, now, now .. ':' .. counter)
		local expire_seconds = math.ceil(window_ms / 1000)
		redis.call('EXPIRE', key, expire_seconds)
		redis.call('EXPIRE', key .. ':counter', expire_seconds)
		return {1, limit - current - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local reset_at = 0
	if oldest and #oldest >= 2 then
		reset_at = tonumber(oldest[2]) + window_ms
	end
	return {0, 0, reset_at}
`)

// SlidingWindow shares limits across api replicas through redis.
type SlidingWindow struct {
	client    *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
	now       func() time.Time
}

func NewSlidingWindow(client *redis.Client, keyPrefix string, limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		window:    window,
		now:       time.Now,
	}
}

func (l *SlidingWindow) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	windowStart := now.Add(-l.window)

	raw, err := slidingWindowScript.Run(ctx, l.client, []string{l.keyPrefix + key},
		now.UnixMilli(), windowStart.UnixMilli(), l.limit, l.window.Milliseconds(),
	).Int64Slice()

	if err != nil {
		return Result{}, fmt.Errorf("redis rate limit script: %w", err)
	}

	if len(raw) != 3 {
		return Result{}, fmt.Errorf("unexpected redis rate limit response length: %d", len(raw))
	}

	res := Result{
		Allowed:   raw[0] == 1,
		Remaining: int(raw[1]),
	}

	if !res.Allowed {
		res.RetryAfter = l.window

		if raw[2] > 0 {
			res.RetryAfter = time.UnixMilli(raw[2]).Sub(now)
		}

		if res.RetryAfter < 0 {
			res.RetryAfter = 0
		}
	}

	return res, nil
}

// Reset clears the window for a key, e.g. after a successful login.
func (l *SlidingWindow) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.keyPrefix+key, l.keyPrefix+key+":counter").Err()
}
