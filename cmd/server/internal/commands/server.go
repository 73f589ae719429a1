package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/wolfeidau/statuspage/internal/assets"
	"github.com/wolfeidau/statuspage/internal/client"
	"github.com/wolfeidau/statuspage/internal/events"
	"github.com/wolfeidau/statuspage/internal/identity"
	"github.com/wolfeidau/statuspage/internal/logger"
	"github.com/wolfeidau/statuspage/internal/login"
	"github.com/wolfeidau/statuspage/internal/store"
	"github.com/wolfeidau/statuspage/internal/telemetry"
	"github.com/wolfeidau/statuspage/internal/webhook"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ServerCmd struct {
	// Server configuration
	Listen  string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"STATUSPAGE_LISTEN"`
	Cert    string `help:"path to TLS cert file" default:"" env:"STATUSPAGE_TLS_CERT"`
	Key     string `help:"path to TLS key file" default:"" env:"STATUSPAGE_TLS_KEY"`
	BaseURL string `help:"externally visible base URL" default:"http://localhost:8080" env:"STATUSPAGE_BASE_URL"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"http://localhost:8080" env:"STATUSPAGE_CORS_ORIGINS"`

	// Tenancy
	DefaultOrgID string `help:"organization that receives users created by identity webhooks" env:"STATUSPAGE_DEFAULT_ORG_ID"`
	TenantID     string `help:"only admit users of this organization" env:"STATUSPAGE_TENANT_ID"`
	BootstrapOrg string `help:"create an organization with this name at startup when none exist" env:"STATUSPAGE_BOOTSTRAP_ORG"`

	// Sessions
	SessionTTL      time.Duration `help:"session cookie TTL" default:"12h" env:"STATUSPAGE_SESSION_TTL"`
	InsecureCookies bool          `help:"omit the Secure cookie attribute (plain HTTP development only)" env:"STATUSPAGE_INSECURE_COOKIES"`

	// Telemetry
	Telemetry   bool    `help:"export metrics and traces over OTLP" default:"false" env:"STATUSPAGE_TELEMETRY"`
	SampleRatio float64 `help:"trace sample ratio" default:"0.1" env:"STATUSPAGE_TRACE_SAMPLE_RATIO"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"STATUSPAGE_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
	Identity      IdentityFlags      `embed:"" prefix:"identity-"`
	NATS          NATSFlags          `embed:"" prefix:"nats-"`
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	zlog.Logger = log
	zerolog.DefaultContextLogger = &log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if err := c.Identity.Validate(); err != nil {
		return err
	}
	if err := c.NATS.Validate(); err != nil {
		return err
	}

	defaultOrgID, err := parseOptionalUUID("--default-org-id", c.DefaultOrgID)
	if err != nil {
		return err
	}
	tenantID, err := parseOptionalUUID("--tenant-id", c.TenantID)
	if err != nil {
		return err
	}

	// Setup telemetry if enabled
	if c.Telemetry {
		log.Info().Msg("Telemetry is enabled")
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: "statuspage-server",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	stores, closeStores, err := openStores(ctx, c.StoreType, &c.PostgresStore)
	if err != nil {
		return err
	}
	defer closeStores()

	if c.BootstrapOrg != "" {
		if err := bootstrapOrganization(ctx, stores, c.BootstrapOrg); err != nil {
			return err
		}
	}

	publisher, err := c.NATS.publisher("statuspage-server")
	if err != nil {
		return err
	}
	defer publisher.Close()

	sessions, flow, devIssuer, err := c.identity(log)
	if err != nil {
		return err
	}

	verifier, err := webhook.NewVerifier(c.Identity.WebhookSecret)
	if err != nil {
		log.Warn().Err(err).Msg("Identity webhooks will be rejected")
	}

	pages, err := assets.New()
	if err != nil {
		return fmt.Errorf("failed to load page templates: %w", err)
	}

	handler := newRouter(routerConfig{
		Logger:      log,
		Stores:      stores,
		Notifier:    events.NewNotifier(stores.Notifications, publisher),
		Sessions:    sessions,
		TenantID:    tenantID,
		Pages:       pages,
		Webhook:     webhook.NewHandler(verifier, webhook.NewReconciler(stores.Users, stores.Organizations, defaultOrgID)),
		Login:       flow,
		DevIssuer:   devIssuer,
		CORSOrigins: c.CORSOrigins,
	})

	if c.Telemetry {
		handler = otelhttp.NewHandler(handler, "statuspage-server")
	}

	srv := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		if c.Cert != "" && c.Key != "" {
			log.Info().Str("addr", c.Listen).Msg("Starting HTTPS server")
			errCh <- srv.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		log.Info().Str("addr", c.Listen).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// identity builds the session reader and sign-in flow, issuing tokens locally in dev mode.
func (c *ServerCmd) identity(log zerolog.Logger) (identity.SessionReader, *login.Flow, *identity.DevIssuer, error) {
	baseURL := strings.TrimSuffix(c.BaseURL, "/")

	var (
		devIssuer *identity.DevIssuer
		readerCfg = identity.JWTReaderConfig{JWKSURL: c.Identity.JWKSURL, Issuer: c.Identity.Issuer}
		flowCfg   = login.Config{
			ClientID:        c.Identity.ClientID,
			ClientSecret:    c.Identity.ClientSecret,
			CallbackURL:     c.Identity.CallbackURL,
			AuthURL:         c.Identity.AuthURL,
			TokenURL:        c.Identity.TokenURL,
			HostedSignInURL: c.Identity.SignInURL,
			SessionTTL:      c.SessionTTL,
			InsecureCookies: c.InsecureCookies,
		}
	)

	if c.Identity.Dev {
		var err error
		devIssuer, err = identity.NewDevIssuer(baseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create development issuer: %w", err)
		}

		readerCfg = identity.JWTReaderConfig{JWKSURL: baseURL + "/.well-known/jwks.json", Issuer: baseURL}
		if flowCfg.ClientID == "" && flowCfg.HostedSignInURL == "" {
			flowCfg.HostedSignInURL = "/dev/session?sub=dev&email=dev@example.com"
		}

		log.Warn().
			Str("kid", devIssuer.Kid()).
			Msg("Development identity issuer enabled, sessions are minted locally")
	}

	keys := identity.NewKeyCache(client.NewInMemoryCachingHTTPClient())

	reader, err := identity.NewJWTReader(readerCfg, keys)
	if err != nil {
		return nil, nil, nil, err
	}

	flow, err := login.New(flowCfg, reader)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize sign-in: %w", err)
	}

	return reader, flow, devIssuer, nil
}

func bootstrapOrganization(ctx context.Context, stores store.Stores, name string) error {
	_, err := stores.Organizations.First(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrOrganizationNotFound) {
		return fmt.Errorf("failed to look up organizations: %w", err)
	}

	org, err := createOrganization(ctx, stores, name)
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("org_id", org.ID.String()).
		Str("name", org.Name).
		Msg("Bootstrapped organization")

	return nil
}
