package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/geocoder89/tasklist/internal/observability"
	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "tasklist:revoked:"

// RevokedTokens stores logged-out token ids with a TTL matching the token's
// remaining lifetime, so the set never outgrows the live sessions.
type RevokedTokens struct {
	rdb  *redis.Client
	prom *observability.Prom
}

func NewRevokedTokens(rdb *redis.Client, prom *observability.Prom) *RevokedTokens {
	return &RevokedTokens{rdb: rdb, prom: prom}
}

func (r *RevokedTokens) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)

	if ttl <= 0 {
		return nil
	}

	return r.prom.ObserveDB("revoked_tokens.set", func() error {
		err := r.rdb.Set(ctx, revokedPrefix+jti, 1, ttl).Err()

		if err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}

		return nil
	})
}

func (r *RevokedTokens) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var n int64

	err := r.prom.ObserveDB("revoked_tokens.exists", func() error {
		var err error
		n, err = r.rdb.Exists(ctx, revokedPrefix+jti).Result()
		return err
	})

	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}

	return n > 0, nil
}
