package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/narvanalabs/redbutton/internal/models"
)

// Claims are the ID token claims the service consumes.
type Claims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// Identity projects the claims onto the display model.
func (c *Claims) Identity() *models.Identity {
	return &models.Identity{
		Subject: c.Subject,
		Name:    c.Name,
		Email:   c.Email,
		Picture: c.Picture,
	}
}

// TokenVerifier checks an ID token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

type jwksKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksResponse struct {
	Keys []jwksKey `json:"keys"`
}

// keySet caches the provider's signing keys. An unknown kid or an expired
// TTL triggers a refetch, at most once per minRefresh whether or not the
// previous attempt succeeded. Concurrent refetches share one request. When a
// refetch fails, keys already cached stay usable.
type keySet struct {
	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	fetchedAt   time.Time
	attemptedAt time.Time

	url        string
	ttl        time.Duration
	minRefresh time.Duration
	client     *http.Client
	logger     *slog.Logger
	group      singleflight.Group
}

func newKeySet(url string, client *http.Client, logger *slog.Logger) *keySet {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &keySet{
		keys:       make(map[string]*rsa.PublicKey),
		url:        url,
		ttl:        5 * time.Minute,
		minRefresh: 10 * time.Second,
		client:     client,
		logger:     logger,
	}
}

func (s *keySet) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	key, ok := s.keys[kid]
	fresh := time.Since(s.fetchedAt) < s.ttl
	throttled := time.Since(s.attemptedAt) < s.minRefresh
	s.mu.RUnlock()

	if ok && (fresh || throttled) {
		return key, nil
	}
	if throttled {
		return nil, fmt.Errorf("kid %q not found in JWKS", kid)
	}

	_, err, _ := s.group.Do("jwks", func() (interface{}, error) {
		return nil, s.refresh(ctx)
	})
	if err != nil {
		if ok {
			s.logger.Warn("JWKS refresh failed, using cached key", "kid", kid, "error", err)
			return key, nil
		}
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok = s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("kid %q not found in JWKS", kid)
	}
	return key, nil
}

// refresh fetches the key set without holding the lock. The attempt time is
// recorded up front so failures are throttled too.
func (s *keySet) refresh(ctx context.Context) error {
	s.mu.Lock()
	if time.Since(s.attemptedAt) < s.minRefresh {
		s.mu.Unlock()
		return nil
	}
	s.attemptedAt = time.Now()
	s.mu.Unlock()

	keys, err := s.fetch(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.keys = keys
	s.fetchedAt = time.Now()
	s.mu.Unlock()
	return nil
}

func (s *keySet) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating JWKS request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned %d", resp.StatusCode)
	}

	var jwks jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("decoding JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAPublicKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	return keys, nil
}

func parseRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

// Verifier validates RS256 ID tokens issued by the identity provider.
type Verifier struct {
	issuer   string
	audience string
	keys     *keySet
}

// NewVerifier creates a verifier for tokens issued by https://{domain}/ to
// the given client id.
func NewVerifier(domain, clientID string, logger *slog.Logger) *Verifier {
	issuer := "https://" + domain + "/"
	return newVerifier(issuer, clientID, issuer+".well-known/jwks.json", nil, logger)
}

func newVerifier(issuer, audience, jwksURL string, client *http.Client, logger *slog.Logger) *Verifier {
	return &Verifier{
		issuer:   issuer,
		audience: audience,
		keys:     newKeySet(jwksURL, client, logger),
	}
}

// Verify checks signature, issuer, audience and expiry. Failures wrap
// ErrInvalidToken.
func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingCredential
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("missing kid in token header")
		}
		return v.keys.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// parseUnverified decodes claims without checking the signature. Only the
// subject is trusted, and only for an allowlist pre-check.
func parseUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
