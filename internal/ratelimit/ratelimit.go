package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of a single rate limit check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
