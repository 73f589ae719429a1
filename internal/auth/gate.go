package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/statuspage/internal/identity"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
	"github.com/wolfeidau/statuspage/internal/telemetry"
)

// GateConfig configures the access gate.
type GateConfig struct {
	// Protected lists the path prefixes that require a signed-in, active local user.
	Protected []string
	// TenantID, when set, restricts access to users of that organization.
	TenantID uuid.UUID
	// SignInURL receives browsers without a session.
	SignInURL string
	// AccessDeniedURL receives browsers whose session has no active local user.
	AccessDeniedURL string
}

// Gate admits requests to protected paths only when the caller has a valid
// identity-provider session that maps to an active local user. It never
// modifies the user directory.
type Gate struct {
	cfg      GateConfig
	sessions identity.SessionReader
	users    store.UserStore
}

// NewGate creates a gate.
func NewGate(cfg GateConfig, sessions identity.SessionReader, users store.UserStore) *Gate {
	if cfg.SignInURL == "" {
		cfg.SignInURL = "/login"
	}
	if cfg.AccessDeniedURL == "" {
		cfg.AccessDeniedURL = "/not-authorized"
	}
	return &Gate{cfg: cfg, sessions: sessions, users: users}
}

// Middleware enforces the gate on protected paths and forwards everything else unchanged.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.isProtected(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		logger := zerolog.Ctx(ctx)
		metrics := telemetry.GetMetrics()

		session, ok := g.sessions.Read(r)
		if !ok {
			metrics.RecordGateDecision(ctx, "unauthenticated")
			g.deny(w, r, http.StatusUnauthorized, "Unauthorized", g.cfg.SignInURL)
			return
		}

		user, err := g.lookup(r, session)
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			logger.Info().Str("external_id", session.ExternalID).Msg("No active local user for session")
			metrics.RecordGateDecision(ctx, "forbidden")
			g.deny(w, r, http.StatusForbidden, "Access denied", g.cfg.AccessDeniedURL)
			return
		case err != nil:
			logger.Error().Err(err).Str("external_id", session.ExternalID).Msg("User lookup failed")
			metrics.RecordGateDecision(ctx, "error")
			g.deny(w, r, http.StatusInternalServerError, "Internal server error", g.cfg.AccessDeniedURL)
			return
		}

		metrics.RecordGateDecision(ctx, "allowed")

		ctx = WithUser(ctx, user)
		ctx = logger.With().
			Str("user_id", user.ID.String()).
			Str("org_id", user.OrganizationID.String()).
			Logger().WithContext(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// lookup finds the active local user for the session: by external ID first, then
// by the session's email. Returns store.ErrUserNotFound when no acceptable match exists.
func (g *Gate) lookup(r *http.Request, session *identity.Session) (*models.User, error) {
	ctx := r.Context()

	user, err := g.users.GetByExternalID(ctx, session.ExternalID)
	if err == nil && g.acceptable(user) {
		return user, nil
	}
	if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		return nil, err
	}

	if session.Email == "" {
		return nil, store.ErrUserNotFound
	}

	user, err = g.users.FindActiveByEmail(ctx, g.cfg.TenantID, session.Email)
	if err != nil {
		return nil, err
	}
	if !g.acceptable(user) {
		return nil, store.ErrUserNotFound
	}

	return user, nil
}

func (g *Gate) acceptable(user *models.User) bool {
	if !user.IsActive {
		return false
	}
	return g.cfg.TenantID == uuid.Nil || user.OrganizationID == g.cfg.TenantID
}

func (g *Gate) isProtected(path string) bool {
	for _, prefix := range g.cfg.Protected {
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

// deny answers API paths with a JSON error and redirects browsers elsewhere.
func (g *Gate) deny(w http.ResponseWriter, r *http.Request, status int, message, redirect string) {
	if isAPIPath(r.URL.Path) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}
