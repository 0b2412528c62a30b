package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/geocoder89/tasklist/internal/domain/user"
	"github.com/geocoder89/tasklist/internal/security"
)

const (
	MinPasswordLength = 8

	// bcrypt only accepts 72 bytes, multi-byte runes count several times
	MaxPasswordBytes = 72
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

type Authenticator struct {
	users  user.Repository
	hasher security.PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthenticator(users user.Repository, hasher security.PasswordHasher) *Authenticator {
	return &Authenticator{
		users:  users,
		hasher: hasher,
	}
}

// Authenticate checks an email/password pair. Unknown emails and wrong passwords
// produce the same ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (user.Identity, error) {
	email = user.NormalizeEmail(email)

	if email == "" || password == "" {
		return user.Identity{}, ErrInvalidCredentials
	}

	found, err := a.users.GetByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// burn the same bcrypt time as a real comparison
			_, _ = a.verify(ctx, a.dummy(), password)
			return user.Identity{}, ErrInvalidCredentials
		}

		return user.Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := a.verify(ctx, found.PasswordHash, password)

	if err != nil {
		return user.Identity{}, err
	}

	if !ok {
		return user.Identity{}, ErrInvalidCredentials
	}

	return found.Identity(), nil
}

// Register creates a credential record and returns its identity.
func (a *Authenticator) Register(ctx context.Context, email, password, displayName string) (user.Identity, error) {
	email = user.NormalizeEmail(email)
	displayName = strings.TrimSpace(displayName)

	if email == "" || password == "" {
		return user.Identity{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	if len(password) < MinPasswordLength {
		return user.Identity{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	if len(password) > MaxPasswordBytes {
		return user.Identity{}, fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, MaxPasswordBytes)
	}

	hash, err := a.hasher.Hash(password)

	if err != nil {
		return user.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := a.users.Create(ctx, user.New(email, hash, displayName))

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.Identity{}, err
		}

		return user.Identity{}, fmt.Errorf("create user: %w", err)
	}

	return created.Identity(), nil
}

// verify runs the hash comparison but stops waiting once ctx is done.
func (a *Authenticator) verify(ctx context.Context, hash, plain string) (bool, error) {
	done := make(chan bool, 1)

	go func() {
		done <- a.hasher.Verify(hash, plain)
	}()

	select {
	case ok := <-done:
		return ok, nil
	case <-ctx.Done():
		return false, fmt.Errorf("verify password: %w", ctx.Err())
	}
}

func (a *Authenticator) dummy() string {
	a.dummyOnce.Do(func() {
		hash, err := a.hasher.Hash("tasklist-dummy-password")

		if err == nil {
			a.dummyHash = hash
		}
	})

	return a.dummyHash
}
