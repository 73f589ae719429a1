package commands

import (
	"context"
	"net/http"
	"strings"

	"filippo.io/csrf"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/statuspage/internal/api"
	"github.com/wolfeidau/statuspage/internal/assets"
	"github.com/wolfeidau/statuspage/internal/auth"
	"github.com/wolfeidau/statuspage/internal/events"
	httpmiddleware "github.com/wolfeidau/statuspage/internal/http"
	"github.com/wolfeidau/statuspage/internal/identity"
	"github.com/wolfeidau/statuspage/internal/logger"
	"github.com/wolfeidau/statuspage/internal/login"
	"github.com/wolfeidau/statuspage/internal/status"
	"github.com/wolfeidau/statuspage/internal/store"
)

// protectedPaths require a signed-in, active local user.
var protectedPaths = []string{
	"/dashboard",
	"/api/me",
	"/api/services",
	"/api/incidents",
	"/api/users",
	"/api/notifications",
}

type routerConfig struct {
	Logger      zerolog.Logger
	Stores      store.Stores
	Notifier    *events.Notifier
	Sessions    identity.SessionReader
	TenantID    uuid.UUID
	Pages       *assets.Pages
	Webhook     http.Handler
	Login       *login.Flow
	DevIssuer   *identity.DevIssuer
	CORSOrigins []string
}

func newRouter(cfg routerConfig) http.Handler {
	r := chi.NewRouter()

	gate := auth.NewGate(auth.GateConfig{
		Protected: protectedPaths,
		TenantID:  cfg.TenantID,
	}, cfg.Sessions, cfg.Stores.Users)

	r.Use(middleware.RequestID)
	r.Use(httpmiddleware.ClientIPMiddleware)
	r.Use(logger.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(gate.Middleware)

	statusHandler := status.NewHandler(status.NewBuilder(cfg.Stores), cfg.Pages)

	apiRouter := api.NewHandler(cfg.Stores, cfg.Notifier).Routes()
	apiRouter.Get("/status/{organizationId}", statusHandler.JSON)
	r.Mount("/api", apiRouter)

	r.Get("/status/{organizationId}", statusHandler.HTML)
	r.Handle("/webhooks/identity", cfg.Webhook)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})
	r.Get("/dashboard", cfg.Pages.Handler("dashboard.html", "Dashboard", http.StatusOK, currentUser))
	r.Get("/not-authorized", cfg.Pages.Handler("not_authorized.html", "Not authorized", http.StatusForbidden, nil))

	r.Get("/login", cfg.Login.LoginHandler)
	r.Get("/oauth/callback", cfg.Login.CallbackHandler)
	r.Get("/logout", cfg.Login.LogoutHandler)

	if cfg.DevIssuer != nil {
		r.Get("/.well-known/jwks.json", cfg.DevIssuer.JWKSHandler())
		r.Get("/dev/session", cfg.DevIssuer.SessionHandler())
	}

	// API routes get CORS, HTML routes get cross-origin request protection.
	protection := csrf.New()
	withCORS := corsHandler(cfg.CORSOrigins, r)
	withCSRF := protection.Handler(r)

	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if isAPIRoute(req.URL.Path) {
			withCORS.ServeHTTP(w, req)
			return
		}
		withCSRF.ServeHTTP(w, req)
	})

	return gzhttp.GzipHandler(handler)
}

// isAPIRoute returns true if the path is called by scripts or other servers
// and needs CORS instead of CSRF.
func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, "/api/") ||
		strings.HasPrefix(path, "/webhooks/") ||
		strings.HasPrefix(path, "/.well-known/")
}

func currentUser(ctx context.Context) any {
	user, _ := auth.UserFromContext(ctx)
	return user
}

func corsHandler(allowedOrigins []string, h http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: true, // Required for cookie-based authentication
	})
	return c.Handler(h)
}
