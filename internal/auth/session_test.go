package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCookiesSetAndClearShareAttributes(t *testing.T) {
	s := SessionCookies{Name: "token", Domain: "example.com", Secure: true}
	exp := time.Now().Add(time.Hour)

	set := httptest.NewRecorder()
	s.Set(set, "id-token", exp)
	cleared := httptest.NewRecorder()
	s.Clear(cleared)

	setCookies := set.Result().Cookies()
	clearCookies := cleared.Result().Cookies()
	require.Len(t, setCookies, 1)
	require.Len(t, clearCookies, 1)

	a, b := setCookies[0], clearCookies[0]
	assert.Equal(t, "id-token", a.Value)
	assert.Equal(t, "", b.Value)
	assert.Less(t, b.MaxAge, 0)

	for _, c := range []*http.Cookie{a, b} {
		assert.Equal(t, "token", c.Name)
		assert.Equal(t, "/", c.Path)
		assert.Equal(t, "example.com", c.Domain)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	}
}

func TestSessionCookiesInsecureInDevelopment(t *testing.T) {
	s := SessionCookies{Name: "token"}
	rr := httptest.NewRecorder()
	s.Set(rr, "v", time.Time{})

	c := rr.Result().Cookies()[0]
	assert.False(t, c.Secure)
	assert.True(t, c.Expires.IsZero())
}

func TestStateCookieRoundTrip(t *testing.T) {
	s := SessionCookies{Name: "token"}

	rr := httptest.NewRecorder()
	s.SetState(rr, "state-1")
	stored := rr.Result().Cookies()
	require.Len(t, stored, 1)
	assert.Equal(t, StateCookie, stored[0].Name)
	assert.Greater(t, stored[0].MaxAge, 0)

	req := httptest.NewRequest(http.MethodGet, "/login/callback", nil)
	req.AddCookie(stored[0])
	rr = httptest.NewRecorder()
	assert.Equal(t, "state-1", s.ConsumeState(rr, req))
	require.Len(t, rr.Result().Cookies(), 1)
	assert.Less(t, rr.Result().Cookies()[0].MaxAge, 0)

	assert.Equal(t, "", s.ConsumeState(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)))
}
