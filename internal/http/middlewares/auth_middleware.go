package middlewares

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/tasklist/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const SessionCookieName = "session_token"

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Validate(ctx context.Context, token string) (user.Identity, error)
}

type AuthMiddleware struct {
	sessions TokenVerifier
	log      *slog.Logger
}

func NewAuthMiddleware(sessions TokenVerifier, log *slog.Logger) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &AuthMiddleware{sessions: sessions, log: log}
}

// RequireAuth rejects the request with 401 unless it carries a valid session.
// The downstream handler never runs for an unauthenticated request.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := TokenFromRequest(c)

		if raw == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Missing session token")
			return
		}

		identity, err := m.sessions.Validate(c.Request.Context(), raw)

		if err != nil {
			m.log.DebugContext(c.Request.Context(), "session rejected", "err", err)
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired session")
			return
		}

		// the only place the owner id for this request comes from
		c.Set(CtxIdentity, identity)

		c.Next()
	}
}

// TokenFromRequest reads the bearer header first, then the session cookie.
func TokenFromRequest(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")

	if len(authHeader) > len("Bearer ") && strings.EqualFold(authHeader[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(authHeader[len("Bearer "):])
	}

	cookie, err := c.Cookie(SessionCookieName)

	if err == nil {
		return strings.TrimSpace(cookie)
	}

	return ""
}

func IdentityFromContext(c *gin.Context) (user.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return user.Identity{}, false
	}
	id, ok := v.(user.Identity)
	return id, ok && id.ID != ""
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	id, ok := IdentityFromContext(c)
	return id.ID, ok
}
