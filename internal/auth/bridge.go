package auth

import "net/http"

// Bridge copies the session cookie into the Authorization header so the rest
// of the stack only deals with bearer credentials.
//
// A request that already carries an Authorization header is left untouched.
// With an empty cookieName, or without a non-empty cookie, the request passes
// through unchanged.
func Bridge(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Header.Get("Authorization") != "":
				// Explicit credentials win.
			case cookieName != "":
				if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
					r.Header.Set("Authorization", "Bearer "+c.Value)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
