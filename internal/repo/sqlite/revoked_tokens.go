package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/geocoder89/tasklist/internal/observability"
)

// RevokedTokensRepo keeps logged-out token ids across restarts.
type RevokedTokensRepo struct {
	db   *sql.DB
	prom *observability.Prom
	now  func() time.Time
}

func NewRevokedTokensRepo(db *sql.DB, prom *observability.Prom) *RevokedTokensRepo {
	return &RevokedTokensRepo{db: db, prom: prom, now: time.Now}
}

func (r *RevokedTokensRepo) Revoke(ctx context.Context, jti string, until time.Time) error {
	err := r.prom.ObserveDB("revoked_tokens.revoke", func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO revoked_tokens (jti, expires_at, revoked_at)
			VALUES (?, ?, ?)
			ON CONFLICT (jti) DO NOTHING`,
			jti, until.Unix(), r.now().Unix(),
		)
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
		return r.db.QueryRowContext(ctx,
			`SELECT EXISTS(
				SELECT 1 FROM revoked_tokens
				WHERE jti = ? AND expires_at > ?
			)`,
			jti, r.now().Unix(),
		).Scan(&revoked)
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
		res, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= ?`, r.now().Unix())

		if err != nil {
			return err
		}

		n, err = res.RowsAffected()
		return err
	})

	return n, err
}
