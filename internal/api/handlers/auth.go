package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/narvanalabs/redbutton/internal/auth"
)

// LoginService is implemented by *auth.LoginFlow.
type LoginService interface {
	AuthCodeURL(state string) string
	Complete(ctx context.Context, code string) (*auth.Session, error)
	LogoutURL() string
}

// AuthHandler handles the login, callback and logout endpoints.
type AuthHandler struct {
	login   LoginService
	cookies auth.SessionCookies
	render  *Renderer
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(login LoginService, cookies auth.SessionCookies, render *Renderer, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		login:   login,
		cookies: cookies,
		render:  render,
		logger:  logger,
	}
}

// Login handles GET /login by redirecting to the identity provider.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := auth.NewState()
	h.cookies.SetState(w, state)
	http.Redirect(w, r, h.login.AuthCodeURL(state), http.StatusFound)
}

// Callback handles GET /login/callback.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stored := h.cookies.ConsumeState(w, r)

	if e := q.Get("error"); e != "" {
		h.logger.Info("identity provider returned an error", "error", e, "description", q.Get("error_description"))
		h.render.Error(w, r, fmt.Errorf("%w: %s", auth.ErrUnauthorized, e))
		return
	}
	if stored == "" || stored != q.Get("state") {
		h.render.Error(w, r, fmt.Errorf("%w: state mismatch", auth.ErrUnauthorized))
		return
	}

	session, err := h.login.Complete(r.Context(), q.Get("code"))
	if err != nil {
		h.cookies.Clear(w)
		h.render.Error(w, r, err)
		return
	}

	h.cookies.Set(w, session.Token, session.ExpiresAt)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout handles GET /logout. The session cookie is cleared and the browser is
// sent to the provider to end its session too.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	http.Redirect(w, r, h.login.LogoutURL(), http.StatusFound)
}
