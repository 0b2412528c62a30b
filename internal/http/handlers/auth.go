package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/tasklist/internal/auth"
	"github.com/geocoder89/tasklist/internal/domain/user"
	"github.com/geocoder89/tasklist/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// bcrypt plus a storage round trip
const authOpTimeout = 3 * time.Second

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (user.Identity, error)
	Register(ctx context.Context, email, password, displayName string) (user.Identity, error)
}

type SessionManager interface {
	Issue(identity user.Identity) (auth.Session, error)
	Revoke(ctx context.Context, token string) error
}

type LoginObserver func(result string)

type AuthHandler struct {
	authn        Authenticator
	sessions     SessionManager
	log          *slog.Logger
	secureCookie bool
	observeLogin LoginObserver
}

type AuthHandlerOptions struct {
	SecureCookie bool
	ObserveLogin LoginObserver
}

func NewAuthHandler(authn Authenticator, sessions SessionManager, log *slog.Logger, opts AuthHandlerOptions) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}

	observe := opts.ObserveLogin
	if observe == nil {
		observe = func(string) {}
	}

	return &AuthHandler{
		authn:        authn,
		sessions:     sessions,
		log:          log,
		secureCookie: opts.SecureCookie,
		observeLogin: observe,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email,max=254"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	DisplayName string `json:"displayName" binding:"max=100"`
}

type sessionResponse struct {
	User      user.Identity `json:"user"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := withRequestTimeout(ctx, authOpTimeout)
	defer cancel()

	identity, err := h.authn.Register(cctx, req.Email, req.Password, req.DisplayName)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		case errors.Is(err, auth.ErrInvalidInput):
			RespondBadRequest(ctx, "Invalid registration details", nil)
		default:
			h.log.ErrorContext(ctx.Request.Context(), "register failed", "err", err)
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	h.startSession(ctx, http.StatusCreated, identity)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := withRequestTimeout(ctx, authOpTimeout)
	defer cancel()

	identity, err := h.authn.Authenticate(cctx, req.Email, req.Password)

	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.observeLogin("invalid")
			// same answer for unknown email and wrong password
			RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
			return
		}

		h.observeLogin("error")
		h.log.ErrorContext(ctx.Request.Context(), "login failed", "err", err)
		RespondInternal(ctx, "Could not sign in")
		return
	}

	h.observeLogin("ok")
	h.startSession(ctx, http.StatusOK, identity)
}

// Logout revokes the presented session, if any, and clears the cookie. It
// always answers 204 so it is safe to call twice.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw := middlewares.TokenFromRequest(ctx)

	if raw != "" {
		cctx, cancel := withRequestTimeout(ctx, authOpTimeout)
		defer cancel()

		err := h.sessions.Revoke(cctx, raw)

		if err != nil {
			h.log.ErrorContext(ctx.Request.Context(), "session revoke failed", "err", err)
			RespondInternal(ctx, "Could not sign out")
			return
		}
	}

	h.clearSessionCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Authentication required")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": identity})
}

func (h *AuthHandler) startSession(ctx *gin.Context, status int, identity user.Identity) {
	session, err := h.sessions.Issue(identity)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "issue session failed", "err", err)
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setSessionCookie(ctx, session)

	ctx.JSON(status, sessionResponse{
		User:      identity,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, s auth.Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteLaxMode)

	ctx.SetCookie(
		middlewares.SessionCookieName,
		s.Token,
		maxAge,
		"/",
		"",
		h.secureCookie,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		middlewares.SessionCookieName,
		"",
		-1,
		"/",
		"",
		h.secureCookie,
		true,
	)
}
