package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/tasklist/internal/auth"
	"github.com/geocoder89/tasklist/internal/domain/user"
	"github.com/geocoder89/tasklist/internal/repo/memory"
	"github.com/geocoder89/tasklist/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthenticator(t *testing.T) *auth.Authenticator {
	t.Helper()

	a := auth.NewAuthenticator(memory.NewUsersRepo(), security.NewBcryptHasher(4))

	_, err := a.Register(context.Background(), "demo@example.com", "password123", "Demo User")
	require.NoError(t, err)

	return a
}

func TestAuthenticator_Success(t *testing.T) {
	a := newAuthenticator(t)

	id, err := a.Authenticate(context.Background(), "demo@example.com", "password123")
	require.NoError(t, err)

	assert.NotEmpty(t, id.ID)
	assert.Equal(t, "demo@example.com", id.Email)
	assert.Equal(t, "Demo User", id.DisplayName)
}

func TestAuthenticator_EmailIsCaseInsensitive(t *testing.T) {
	a := newAuthenticator(t)

	_, err := a.Authenticate(context.Background(), "  Demo@Example.COM ", "password123")
	assert.NoError(t, err)
}

func TestAuthenticator_GenericFailure(t *testing.T) {
	a := newAuthenticator(t)
	ctx := context.Background()

	_, unknown := a.Authenticate(ctx, "nobody@example.com", "password123")
	_, wrong := a.Authenticate(ctx, "demo@example.com", "password124")

	require.ErrorIs(t, unknown, auth.ErrInvalidCredentials)
	require.ErrorIs(t, wrong, auth.ErrInvalidCredentials)
	assert.Equal(t, unknown.Error(), wrong.Error())
}

func TestAuthenticator_MissingFieldsRejected(t *testing.T) {
	a := newAuthenticator(t)
	ctx := context.Background()

	for _, tc := range []struct{ email, password string }{
		{"", "password123"},
		{"demo@example.com", ""},
		{"   ", ""},
	} {
		_, err := a.Authenticate(ctx, tc.email, tc.password)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}
}

func TestAuthenticator_Register(t *testing.T) {
	a := newAuthenticator(t)
	ctx := context.Background()

	_, err := a.Register(ctx, "DEMO@example.com", "password456", "Again")
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	_, err = a.Register(ctx, "short@example.com", "short", "Short")
	assert.ErrorIs(t, err, auth.ErrInvalidInput)

	_, err = a.Register(ctx, "", "password123", "")
	assert.ErrorIs(t, err, auth.ErrInvalidInput)

	id, err := a.Register(ctx, "eve@example.com", "password123", "  Eve ")
	require.NoError(t, err)
	assert.Equal(t, "Eve", id.DisplayName)
}

type brokenUsers struct{ err error }

func (b brokenUsers) Create(ctx context.Context, u user.User) (user.User, error) {
	return user.User{}, b.err
}

func (b brokenUsers) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return user.User{}, b.err
}

func (b brokenUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	return user.User{}, b.err
}

func TestAuthenticator_StorageErrorIsNotACredentialError(t *testing.T) {
	boom := errors.New("db down")
	a := auth.NewAuthenticator(brokenUsers{err: boom}, security.NewBcryptHasher(4))

	_, err := a.Authenticate(context.Background(), "demo@example.com", "password123")

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
}

type slowHasher struct{ security.PasswordHasher }

func (s slowHasher) Verify(hash, plain string) bool {
	time.Sleep(200 * time.Millisecond)
	return true
}

func TestAuthenticator_HashComparisonHonoursDeadline(t *testing.T) {
	users := memory.NewUsersRepo()
	_, err := users.Create(context.Background(), user.New("demo@example.com", "hash", "Demo"))
	require.NoError(t, err)

	a := auth.NewAuthenticator(users, slowHasher{security.NewBcryptHasher(4)})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = a.Authenticate(ctx, "demo@example.com", "password123")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAuthenticator_RegisterPasswordByteLimit(t *testing.T) {
	a := auth.NewAuthenticator(memory.NewUsersRepo(), security.NewBcryptHasher(4))
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		// 40 runes but 80 bytes
		{"multibyte_over_limit", "a@example.com", strings.Repeat("é", 40), auth.ErrInvalidInput},
		{"ascii_over_limit", "b@example.com", strings.Repeat("x", 73), auth.ErrInvalidInput},
		{"multibyte_at_limit", "c@example.com", strings.Repeat("é", 36), nil},
		{"ascii_at_limit", "d@example.com", strings.Repeat("x", 72), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Register(ctx, tt.email, tt.password, "")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)

			_, err = a.Authenticate(ctx, tt.email, tt.password)
			assert.NoError(t, err)
		})
	}
}
