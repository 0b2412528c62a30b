package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/tasklist/internal/auth"
	"github.com/geocoder89/tasklist/internal/domain/user"
)

const (
	DemoEmail       = "demo@example.com"
	DemoPassword    = "password123"
	DemoDisplayName = "Demo User"
)

// EnsureDemoUser registers the demo account unless it already exists.
func EnsureDemoUser(ctx context.Context, authn *auth.Authenticator, log *slog.Logger) error {
	id, err := authn.Register(ctx, DemoEmail, DemoPassword, DemoDisplayName)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return nil
		}

		return err
	}

	log.Info("demo user seeded", "email", id.Email, "userId", id.ID)

	return nil
}
