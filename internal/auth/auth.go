// Package auth turns a cookie-held ID token into a per-request bearer
// credential, verifies it against the identity provider and restricts access
// to an allowlist of subjects.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/narvanalabs/redbutton/internal/models"
)

// Common errors returned by the auth package. All of them satisfy
// errors.Is(err, ErrUnauthorized).
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrMissingCredential = fmt.Errorf("%w: missing credential", ErrUnauthorized)
	ErrInvalidToken      = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrSubjectNotAllowed = fmt.Errorf("%w: subject not allowed", ErrUnauthorized)
)

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext returns the identity stored by the authentication
// middleware, if any.
func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*models.Identity)
	return id, ok && id != nil
}

// ExtractBearerToken extracts the token from a Bearer authorization header.
func ExtractBearerToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
