// Package janitor periodically drops revocation entries whose tokens have
// expired anyway. Backends that expire entries themselves (redis) need no janitor.
package janitor

import (
	"context"
	"log/slog"
	"time"
)

type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type Config struct {
	Interval time.Duration

	// zero values fall back to 2s and Interval
	RetryBase time.Duration
	RetryCap  time.Duration
}

type Janitor struct {
	cfg    Config
	purger Purger
	log    *slog.Logger

	backoff func(attempt int) time.Duration
}

func New(cfg Config, purger Purger, log *slog.Logger) *Janitor {
	if log == nil {
		log = slog.Default()
	}

	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 2 * time.Second
	}

	if cfg.RetryCap <= 0 {
		cfg.RetryCap = cfg.Interval
	}

	j := &Janitor{cfg: cfg, purger: purger, log: log}
	j.backoff = func(attempt int) time.Duration {
		return ExponentialBackoff(attempt, j.cfg.RetryBase, j.cfg.RetryCap)
	}

	return j
}

// RunOnce performs a single purge.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return j.purger.PurgeExpired(cctx)
}

// Run purges every Interval until ctx is cancelled. Failed purges are retried
// with backoff instead of waiting a full interval.
func (j *Janitor) Run(ctx context.Context) error {
	failures := 0
	wait := j.cfg.Interval

	for {
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			j.log.Info("janitor received shutdown signal")
			return nil

		case <-timer.C:
		}

		n, err := j.RunOnce(ctx)

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			wait = j.backoff(failures)
			failures++
			j.log.Warn("purge revoked tokens failed", "err", err, "attempt", failures, "retry_in", wait)
			continue
		}

		failures = 0
		wait = j.cfg.Interval

		if n > 0 {
			j.log.Info("purged expired revocations", "count", n)
		}
	}
}
