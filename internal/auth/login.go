package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/narvanalabs/redbutton/internal/models"
)

// LoginConfig describes the OAuth application registered with the identity
// provider.
type LoginConfig struct {
	Domain       string
	ClientID     string
	ClientSecret string
	// RedirectURL is the absolute callback URL.
	RedirectURL string
	// ReturnURL is where the provider sends the browser after logout.
	ReturnURL string
	// Endpoint overrides the endpoints derived from Domain.
	Endpoint oauth2.Endpoint
}

// Session is the result of a completed login.
type Session struct {
	Token     string
	Identity  *models.Identity
	ExpiresAt time.Time
}

// LoginFlow drives the authorization code flow.
type LoginFlow struct {
	oauth     *oauth2.Config
	verifier  TokenVerifier
	allowlist *Allowlist
	logoutURL string
	logger    *slog.Logger
}

// NewLoginFlow creates a login flow.
func NewLoginFlow(cfg LoginConfig, verifier TokenVerifier, allowlist *Allowlist, logger *slog.Logger) *LoginFlow {
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint.AuthURL = "https://" + cfg.Domain + "/authorize"
	}
	if endpoint.TokenURL == "" {
		endpoint.TokenURL = "https://" + cfg.Domain + "/oauth/token"
	}

	q := url.Values{}
	q.Set("client_id", cfg.ClientID)
	q.Set("returnTo", cfg.ReturnURL)

	return &LoginFlow{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "profile", "email"},
		},
		verifier:  verifier,
		allowlist: allowlist,
		logoutURL: "https://" + cfg.Domain + "/v2/logout?" + q.Encode(),
		logger:    logger.With("component", "login"),
	}
}

// NewState returns a fresh OAuth state value.
func NewState() string {
	return uuid.NewString()
}

// AuthCodeURL returns the provider URL that starts a login.
func (f *LoginFlow) AuthCodeURL(state string) string {
	return f.oauth.AuthCodeURL(state)
}

// LogoutURL returns the provider URL that ends the provider session.
func (f *LoginFlow) LogoutURL() string {
	return f.logoutURL
}

// Complete exchanges an authorization code for an ID token. The subject is
// checked against the allowlist before the signature is verified; either
// failure is reported as ErrUnauthorized.
func (f *LoginFlow) Complete(ctx context.Context, code string) (*Session, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrUnauthorized)
	}

	tok, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchanging code: %v", ErrUnauthorized, err)
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, fmt.Errorf("%w: no id_token in token response", ErrUnauthorized)
	}

	unverified, err := parseUnverified(raw)
	if err != nil {
		return nil, err
	}
	if !f.allowlist.Allows(unverified.Subject) {
		f.logger.Warn("login rejected, subject not allowed", "sub", unverified.Subject)
		return nil, fmt.Errorf("%w: %s", ErrSubjectNotAllowed, unverified.Subject)
	}

	claims, err := f.verifier.Verify(ctx, raw)
	if err != nil {
		f.logger.Warn("login rejected, token verification failed", "sub", unverified.Subject, "error", err)
		return nil, err
	}

	session := &Session{Token: raw, Identity: claims.Identity()}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	f.logger.Info("login completed", "sub", claims.Subject)
	return session, nil
}
