package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/httpx"
	"github.com/louisbranch/skillswap/internal/platform/requestctx"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
	"github.com/louisbranch/skillswap/internal/services/marketplace/token"
	"github.com/louisbranch/skillswap/internal/services/marketplace/user"
)

// tokenCookieName carries the access token for browser clients.
const tokenCookieName = "ss_token"

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expires_at"`
	User      userView `json:"user"`
}

// Authenticator resolves access tokens to live, non-banned users.
type Authenticator struct {
	tokens *token.Manager
	users  storage.UserStore
}

// NewAuthenticator builds an authenticator over the token manager and users.
func NewAuthenticator(tokens *token.Manager, users storage.UserStore) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Resolve verifies raw and reloads its user.
func (a *Authenticator) Resolve(ctx context.Context, raw string) (user.User, error) {
	if a == nil || a.tokens == nil || a.users == nil {
		return user.User{}, errors.New("authenticator is not configured")
	}
	claims, err := a.tokens.Verify(raw)
	if err != nil {
		return user.User{}, err
	}
	current, err := a.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "account no longer exists")
		}
		return user.User{}, err
	}
	if current.Banned {
		return user.User{}, user.ErrBanned
	}
	return current, nil
}

// Authenticate returns the user id behind raw.
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (string, error) {
	current, err := a.Resolve(ctx, raw)
	if err != nil {
		return "", err
	}
	return current.ID, nil
}

// AccessTokenFromRequest reads the bearer header, then the session cookie.
func AccessTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value)
		}
	}
	cookie, err := r.Cookie(tokenCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

// requireUser authenticates the request and stores the caller in context.
// The user is reloaded on every request so bans apply immediately.
func (h *handler) requireUser(next http.HandlerFunc) http.HandlerFunc {
	authenticator := NewAuthenticator(h.tokens, h.store)
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := authenticator.Resolve(r.Context(), AccessTokenFromRequest(r))
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		ctx := requestctx.WithCaller(r.Context(), current.ID, string(current.Role))
		next(w, r.WithContext(ctx))
	}
}

func (h *handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if !callerIsAdmin(r.Context()) {
			httpx.WriteError(w, r, apperrors.New(apperrors.CodeForbidden, "admin role required"))
			return
		}
		next(w, r)
	})
}

func callerID(ctx context.Context) string {
	return requestctx.UserIDFromContext(ctx)
}

func callerIsAdmin(ctx context.Context) bool {
	return requestctx.RoleFromContext(ctx) == string(user.RoleAdmin)
}

func (h *handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	candidate, err := user.Register(user.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	}, user.RoleUser, h.now, h.idGenerator)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	created, err := h.store.CreateUser(r.Context(), candidate)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			httpx.WriteError(w, r, apperrors.WithMetadata(apperrors.CodeUserEmailTaken, "email is already registered", map[string]string{"Field": "email"}))
			return
		}
		httpx.WriteError(w, r, err)
		return
	}
	log.Printf("auth: user registered user=%s role=%s", created.ID, created.Role)
	h.writeSession(w, r, http.StatusCreated, created)
}

func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	email, err := user.NormalizeEmail(req.Email)
	if err != nil {
		httpx.WriteError(w, r, user.ErrInvalidCredentials)
		return
	}
	current, err := h.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpx.WriteError(w, r, user.ErrInvalidCredentials)
			return
		}
		httpx.WriteError(w, r, err)
		return
	}
	if err := user.Authenticate(current, req.Password); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeSession(w, r, http.StatusOK, current)
}

func (h *handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleMe(w http.ResponseWriter, r *http.Request) {
	current, err := h.store.GetUser(r.Context(), callerID(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, notFound(err, "user"))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, newUserView(current))
}

func (h *handler) writeSession(w http.ResponseWriter, r *http.Request, status int, u user.User) {
	signed, expiresAt, err := h.tokens.Issue(u.ID, string(u.Role))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    signed,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	_ = httpx.WriteJSON(w, status, authResponse{
		Token:     signed,
		ExpiresAt: formatTime(expiresAt),
		User:      newUserView(u),
	})
}
