package auth

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/narvanalabs/redbutton/internal/models"
)

// Authenticator resolves the bearer credential of a request to an allowed
// identity.
type Authenticator struct {
	verifier  TokenVerifier
	allowlist *Allowlist
	logger    *slog.Logger
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(verifier TokenVerifier, allowlist *Allowlist, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		verifier:  verifier,
		allowlist: allowlist,
		logger:    logger.With("component", "auth"),
	}
}

// Authenticate verifies the request's bearer token. The returned error
// always satisfies errors.Is(err, ErrUnauthorized).
func (a *Authenticator) Authenticate(r *http.Request) (*models.Identity, error) {
	token := ExtractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return nil, ErrMissingCredential
	}

	claims, err := a.verifier.Verify(r.Context(), token)
	if err != nil {
		return nil, err
	}
	if !a.allowlist.Allows(claims.Subject) {
		return nil, fmt.Errorf("%w: %s", ErrSubjectNotAllowed, claims.Subject)
	}
	return claims.Identity(), nil
}

// RequireAuthenticated rejects requests without an allowed identity by
// calling onError. No downstream handler runs in that case.
func (a *Authenticator) RequireAuthenticated(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(r)
			if err != nil {
				a.logger.Info("rejected unauthenticated request", "path", r.URL.Path, "error", err)
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// TryAuthenticate attaches the identity when the request carries a valid
// credential and otherwise continues anonymously.
func (a *Authenticator) TryAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.Authenticate(r)
		if err != nil {
			a.logger.Debug("continuing anonymously", "path", r.URL.Path, "error", err)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
