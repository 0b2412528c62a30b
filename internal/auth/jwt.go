package auth

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/tasklist/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultSessionTTL = 30 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Email       string `json:"email"`
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Session is a freshly minted bearer token.
type Session struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// RevocationList remembers logged-out token ids until they would have expired anyway.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Manager struct {
	secret  []byte
	ttl     time.Duration
	revoked RevocationList
	now     func() time.Time
}

// NewManager builds the session manager. revoked may be nil, in which case
// logout is client-side only and tokens live until they expire.
func NewManager(secret string, ttl time.Duration, revoked RevocationList) *Manager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: revoked,
		now:     time.Now,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) Issue(identity user.Identity) (Session, error) {
	if identity.ID == "" {
		return Session{}, errors.New("identity without id")
	}

	now := m.now().UTC()
	jti := uuid.NewString()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	raw, err := token.SignedString(m.secret)

	if err != nil {
		return Session{}, err
	}

	return Session{Token: raw, ID: jti, ExpiresAt: expiresAt}, nil
}

// Parse checks signature and expiry only.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HMAC
		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Validate resolves a token into the identity it was issued for. Every failure,
// including a revoked or expired token, is reported as ErrInvalidToken.
func (m *Manager) Validate(ctx context.Context, tokenStr string) (user.Identity, error) {
	claims, err := m.Parse(tokenStr)

	if err != nil {
		return user.Identity{}, err
	}

	if m.revoked != nil {
		revoked, err := m.revoked.IsRevoked(ctx, claims.ID)

		if err != nil {
			// fail closed, the caller can still log the cause
			return user.Identity{}, errors.Join(ErrInvalidToken, err)
		}

		if revoked {
			return user.Identity{}, ErrInvalidToken
		}
	}

	return user.Identity{
		ID:          claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
	}, nil
}

// Revoke invalidates a token server-side. Invalid tokens are ignored.
func (m *Manager) Revoke(ctx context.Context, tokenStr string) error {
	if m.revoked == nil {
		return nil
	}

	claims, err := m.Parse(tokenStr)

	if err != nil {
		return nil
	}

	return m.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}
