// Package login implements browser sign-in against the identity provider using
// the OAuth2 authorization code flow.
package login

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/statuspage/internal/identity"
	"golang.org/x/oauth2"
)

const stateCookieName = "state"

// TokenVerifier validates an identity-provider issued session token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*identity.Session, error)
}

// Config configures the sign-in flow. When ClientID is empty the flow is
// disabled and /login redirects to HostedSignInURL instead.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	AuthURL      string
	TokenURL     string
	Scopes       []string

	// HostedSignInURL is the identity provider's own sign-in page.
	HostedSignInURL string
	// AfterSignInURL receives the browser once the session cookie is set.
	AfterSignInURL string
	// SessionTTL bounds the lifetime of the session cookie.
	SessionTTL time.Duration
	// InsecureCookies drops the Secure attribute, for plain HTTP development servers.
	InsecureCookies bool
}

// Flow serves /login, /oauth/callback and /logout.
type Flow struct {
	cfg      Config
	oauth    *oauth2.Config
	verifier TokenVerifier
}

// New creates the sign-in flow.
func New(cfg Config, verifier TokenVerifier) (*Flow, error) {
	if cfg.AfterSignInURL == "" {
		cfg.AfterSignInURL = "/dashboard"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}

	f := &Flow{cfg: cfg, verifier: verifier}

	if cfg.ClientID == "" {
		if cfg.HostedSignInURL == "" {
			return nil, errors.New("either OAuth client settings or a hosted sign-in URL are required")
		}
		return f, nil
	}

	if cfg.CallbackURL == "" || cfg.AuthURL == "" || cfg.TokenURL == "" {
		return nil, errors.New("callback URL, auth URL and token URL are required")
	}
	if verifier == nil {
		return nil, errors.New("token verifier is required")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}

	f.oauth = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.CallbackURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
	}

	return f, nil
}

func (f *Flow) saveState(w http.ResponseWriter) string {
	state := rand.Text()

	http.SetCookie(w, f.cookie(stateCookieName, state, 300))

	return state
}

// LoginHandler starts the authorization code flow.
func (f *Flow) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if f.oauth == nil {
		http.Redirect(w, r, f.cfg.HostedSignInURL, http.StatusFound)
		return
	}

	log.Debug().Msg("Initiating OAuth flow")

	state := f.saveState(w)

	http.Redirect(w, r, f.oauth.AuthCodeURL(state), http.StatusFound)
}

// CallbackHandler completes the flow: it exchanges the code, verifies the
// returned id_token and stores it as the session cookie.
func (f *Flow) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if f.oauth == nil {
		http.NotFound(w, r)
		return
	}

	if errCode := r.FormValue("error"); errCode != "" {
		log.Warn().Str("error", errCode).Str("description", r.FormValue("error_description")).Msg("Identity provider returned an error")
		http.Error(w, "Authentication failed", http.StatusBadRequest)
		return
	}

	state := r.FormValue("state")
	code := r.FormValue("code")

	if state == "" || code == "" {
		log.Warn().Msg("OAuth callback missing state or code")
		http.Error(w, "Authentication failed", http.StatusBadRequest)
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil {
		log.Warn().Err(err).Msg("OAuth callback missing state cookie")
		http.Error(w, "Authentication failed", http.StatusBadRequest)
		return
	}

	if subtle.ConstantTimeCompare([]byte(state), []byte(cookie.Value)) != 1 {
		log.Warn().Msg("OAuth callback state mismatch")
		http.Error(w, "Authentication failed", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, f.cookie(stateCookieName, "", -1))

	token, err := f.oauth.Exchange(r.Context(), code)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to exchange OAuth code for token")
		http.Error(w, "Authentication failed", http.StatusBadRequest)
		return
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		log.Warn().Msg("Token response missing id_token")
		http.Error(w, "Authentication failed", http.StatusBadRequest)
		return
	}

	session, err := f.verifier.Verify(r.Context(), idToken)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to verify id_token")
		http.Error(w, "Authentication failed", http.StatusBadRequest)
		return
	}

	log.Info().Str("external_id", session.ExternalID).Msg("User signed in")

	http.SetCookie(w, f.cookie(identity.SessionCookieName, idToken, int(f.cfg.SessionTTL.Seconds())))

	http.Redirect(w, r, f.cfg.AfterSignInURL, http.StatusFound)
}

// LogoutHandler clears the session cookie.
func (f *Flow) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, f.cookie(identity.SessionCookieName, "", -1))
	http.Redirect(w, r, "/", http.StatusFound)
}

func (f *Flow) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   !f.cfg.InsecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}
