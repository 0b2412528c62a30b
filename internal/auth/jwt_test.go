package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/tasklist/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

var demo = user.Identity{ID: "u-1", Email: "demo@example.com", DisplayName: "Demo User"}

type memRevocations struct {
	ids map[string]time.Time
	err error
}

func (m *memRevocations) Revoke(ctx context.Context, jti string, until time.Time) error {
	if m.ids == nil {
		m.ids = map[string]time.Time{}
	}
	m.ids[jti] = until
	return m.err
}

func (m *memRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, ok := m.ids[jti]
	return ok, m.err
}

func TestManager_IssueAndValidate(t *testing.T) {
	t.Parallel()

	m := NewManager("test-secret", time.Hour, nil)

	s, err := m.Issue(demo)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if s.Token == "" || s.ID == "" {
		t.Fatalf("expected token and id, got %+v", s)
	}

	if d := time.Until(s.ExpiresAt); d < 59*time.Minute || d > time.Hour {
		t.Fatalf("unexpected expiry %v", s.ExpiresAt)
	}

	got, err := m.Validate(context.Background(), s.Token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if got != demo {
		t.Fatalf("identity mismatch: got %+v want %+v", got, demo)
	}
}

func TestManager_DefaultTTLIsThirtyDays(t *testing.T) {
	t.Parallel()

	m := NewManager("k", 0, nil)

	if m.TTL() != 30*24*time.Hour {
		t.Fatalf("got %v", m.TTL())
	}
}

func TestManager_Validate_Failures(t *testing.T) {
	t.Parallel()

	m := NewManager("right-secret", time.Hour, nil)
	other := NewManager("wrong-secret", time.Hour, nil)

	s, err := other.Issue(demo)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   demo.ID,
			ID:        "x",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: demo.ID, ID: "x"},
	})
	noExpRaw, err := noExp.SignedString([]byte("right-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"malformed", "not.a.jwt"},
		{"wrong_secret", s.Token},
		{"alg_none", unsigned},
		{"missing_exp", noExpRaw},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Validate(context.Background(), tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestManager_TamperedSignatureFails(t *testing.T) {
	t.Parallel()

	m := NewManager("test-secret", time.Hour, nil)

	s, err := m.Issue(demo)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(s.Token, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}

	for i := range sig {
		for bit := 0; bit < 8; bit++ {
			flipped := append([]byte(nil), sig...)
			flipped[i] ^= 1 << bit

			tampered := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(flipped)

			if _, err := m.Validate(context.Background(), tampered); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("byte %d bit %d: expected ErrInvalidToken, got %v", i, bit, err)
			}
		}
	}
}

func TestManager_TamperedClaimsFail(t *testing.T) {
	t.Parallel()

	m := NewManager("test-secret", time.Hour, nil)

	s, err := m.Issue(demo)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(s.Token, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}

	forged := strings.Replace(string(payload), demo.ID, "u-2", 1)
	tampered := parts[0] + "." + base64.RawURLEncoding.EncodeToString([]byte(forged)) + "." + parts[2]

	if _, err := m.Validate(context.Background(), tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestManager_ExpiredTokenFails(t *testing.T) {
	t.Parallel()

	m := NewManager("test-secret", time.Hour, nil)

	s, err := m.Issue(demo)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := m.Validate(context.Background(), s.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestManager_RevokedTokenFails(t *testing.T) {
	t.Parallel()

	revoked := &memRevocations{}
	m := NewManager("test-secret", time.Hour, revoked)

	s, err := m.Issue(demo)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := m.Revoke(context.Background(), s.Token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if until, ok := revoked.ids[s.ID]; !ok || !until.Equal(s.ExpiresAt.Truncate(time.Second)) {
		t.Fatalf("expected jti %s revoked until %v, got %v", s.ID, s.ExpiresAt, revoked.ids)
	}

	if _, err := m.Validate(context.Background(), s.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after revoke, got %v", err)
	}

	// garbage is ignored on logout
	if err := m.Revoke(context.Background(), "garbage"); err != nil {
		t.Fatalf("Revoke(garbage): %v", err)
	}
}

func TestManager_RevocationBackendErrorFailsClosed(t *testing.T) {
	t.Parallel()

	backendErr := errors.New("redis down")
	m := NewManager("test-secret", time.Hour, &memRevocations{err: backendErr})

	s, err := m.Issue(demo)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = m.Validate(context.Background(), s.Token)
	if !errors.Is(err, ErrInvalidToken) || !errors.Is(err, backendErr) {
		t.Fatalf("expected joined ErrInvalidToken and backend error, got %v", err)
	}
}

func TestManager_IssueRequiresID(t *testing.T) {
	t.Parallel()

	m := NewManager("k", time.Hour, nil)

	if _, err := m.Issue(user.Identity{Email: "a@b.c"}); err == nil {
		t.Fatalf("expected error for identity without id")
	}
}
