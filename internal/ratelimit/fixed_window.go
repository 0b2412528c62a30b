package ratelimit

import (
	"context"
	"sync"
	"time"
)

// FixedWindow is a per-process limiter: at most limit hits per key in each window.
type FixedWindow struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	clients map[string]*clientBucket
	now     func() time.Time

	lastSweep time.Time
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

func (rl *FixedWindow) Allow(ctx context.Context, key string) (Result, error) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.sweep(now)

	b, ok := rl.clients[key]

	if !ok || now.After(b.windowEnd) {
		rl.clients[key] = &clientBucket{
			count:     1,
			windowEnd: now.Add(rl.window),
		}

		return Result{Allowed: true, Remaining: rl.limit - 1}, nil
	}

	if b.count >= rl.limit {
		retryAfter := b.windowEnd.Sub(now)

		if retryAfter < 0 {
			retryAfter = 0
		}

		return Result{Allowed: false, RetryAfter: retryAfter}, nil
	}

	b.count++

	return Result{Allowed: true, Remaining: rl.limit - b.count}, nil
}

// sweep drops finished windows at most once per window. Caller holds mu.
func (rl *FixedWindow) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}

	for key, b := range rl.clients {
		if now.After(b.windowEnd) {
			delete(rl.clients, key)
		}
	}

	rl.lastSweep = now
}
