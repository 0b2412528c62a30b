package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/geocoder89/tasklist/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RevokedTokensRepo is the revocation list for deployments without redis.
type RevokedTokensRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRevokedTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *RevokedTokensRepo {
	return &RevokedTokensRepo{pool: pool, prom: prom}
}

func (r *RevokedTokensRepo) Revoke(ctx context.Context, jti string, until time.Time) error {
	err := r.prom.ObserveDB("revoked_tokens.revoke", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO revoked_tokens (jti, expires_at, revoked_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (jti) DO NOTHING
		`, jti, until)
		return err
	})

	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	return nil
}

func (r *RevokedTokensRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool

	err := r.prom.ObserveDB("revoked_tokens.is_revoked", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM revoked_tokens
				WHERE jti = $1 AND expires_at > NOW()
			)
		`, jti).Scan(&revoked)
	})

	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}

	return revoked, nil
}

// PurgeExpired deletes entries whose tokens have expired on their own.
func (r *RevokedTokensRepo) PurgeExpired(ctx context.Context) (int64, error) {
	var n int64

	err := r.prom.ObserveDB("revoked_tokens.purge_expired", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= NOW()`)

		if err != nil {
			return err
		}

		n = tag.RowsAffected()
		return nil
	})

	return n, err
}
