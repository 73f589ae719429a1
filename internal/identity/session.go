// Package identity reads and verifies sessions issued by the external identity provider.
package identity

import (
	"net/http"
	"strings"
)

// SessionCookieName is the cookie holding the identity provider's session token.
const SessionCookieName = "__session"

// Session is the caller's verified external identity.
type Session struct {
	// ExternalID is the identity provider's user ID (the token subject).
	ExternalID string
	// Email is the optional email claim.
	Email string
}

// SessionReader extracts a verified session from a request.
// It returns false when the request carries no valid session.
type SessionReader interface {
	Read(r *http.Request) (*Session, bool)
}

// SessionReaderFunc adapts a function to a SessionReader.
type SessionReaderFunc func(r *http.Request) (*Session, bool)

// Read calls f(r).
func (f SessionReaderFunc) Read(r *http.Request) (*Session, bool) {
	return f(r)
}

// tokenFromRequest returns the session token from the session cookie, falling back
// to an Authorization bearer header.
func tokenFromRequest(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return "", false
	}

	return strings.TrimSpace(token), true
}
