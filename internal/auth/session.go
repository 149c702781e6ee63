package auth

import (
	"net/http"
	"time"
)

// StateCookie holds the OAuth state between /login and the callback.
const StateCookie = "oauth_state"

const stateMaxAge = 10 * time.Minute

// SessionCookies writes and clears the session cookie. Set and Clear use the
// same attributes so the browser recognises the cookie being cleared.
type SessionCookies struct {
	Name   string
	Domain string
	Secure bool
}

func (s SessionCookies) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.Domain,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Set stores the ID token. The cookie expires with the token.
func (s SessionCookies) Set(w http.ResponseWriter, token string, expires time.Time) {
	c := s.cookie(s.Name, token)
	if !expires.IsZero() {
		c.Expires = expires
	}
	http.SetCookie(w, c)
}

// Clear removes the session cookie.
func (s SessionCookies) Clear(w http.ResponseWriter) {
	c := s.cookie(s.Name, "")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

// SetState stores the OAuth state for the callback to check.
func (s SessionCookies) SetState(w http.ResponseWriter, state string) {
	c := s.cookie(StateCookie, state)
	c.MaxAge = int(stateMaxAge.Seconds())
	http.SetCookie(w, c)
}

// ConsumeState returns the stored OAuth state and clears it.
func (s SessionCookies) ConsumeState(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(StateCookie)
	if err != nil {
		return ""
	}
	expired := s.cookie(StateCookie, "")
	expired.MaxAge = -1
	http.SetCookie(w, expired)
	return c.Value
}
