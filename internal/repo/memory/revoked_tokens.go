package memory

import (
	"context"
	"sync"
	"time"
)

type RevokedTokens struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewRevokedTokens() *RevokedTokens {
	return &RevokedTokens{
		until: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (r *RevokedTokens) Revoke(ctx context.Context, jti string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.purgeLocked(now)

	if until.After(now) {
		r.until[jti] = until
	}

	return nil
}

func (r *RevokedTokens) IsRevoked(ctx context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.until[jti]

	if !ok {
		return false, nil
	}

	if r.now().After(exp) {
		delete(r.until, jti)
		return false, nil
	}

	return true, nil
}

// PurgeExpired drops entries whose tokens fail validation on their own.
func (r *RevokedTokens) PurgeExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.purgeLocked(r.now()), nil
}

func (r *RevokedTokens) purgeLocked(now time.Time) int64 {
	var n int64

	for id, exp := range r.until {
		if now.After(exp) {
			delete(r.until, id)
			n++
		}
	}

	return n
}
