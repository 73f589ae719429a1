package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/statuspage/internal/events"
	"github.com/wolfeidau/statuspage/internal/store"
	memorystore "github.com/wolfeidau/statuspage/internal/store/memory"
	postgresstore "github.com/wolfeidau/statuspage/internal/store/postgres"
)

type Globals struct {
	Debug   bool
	Version string
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32         `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`
	StartupTimeout  time.Duration `help:"how long to keep retrying the database at startup" default:"30s"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"STATUSPAGE_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	if s.MinConns > s.MaxConns {
		return errors.New("--postgres-min-conns must not exceed --postgres-max-conns")
	}
	return nil
}

func (s *PostgresStoreFlags) poolConfig() *postgresstore.PoolConfig {
	return &postgresstore.PoolConfig{
		ConnString:      s.ConnString,
		MaxConns:        s.MaxConns,
		MinConns:        s.MinConns,
		MaxConnLifetime: s.MaxConnLifetime,
		MaxConnIdleTime: s.MaxConnIdleTime,
		StartupTimeout:  s.StartupTimeout,
		AutoMigrate:     s.AutoMigrate,
	}
}

// openStores creates the stores for storeType. The returned func releases them.
func openStores(ctx context.Context, storeType string, flags *PostgresStoreFlags) (store.Stores, func(), error) {
	switch storeType {
	case "postgres":
		if err := flags.Validate(); err != nil {
			return store.Stores{}, nil, fmt.Errorf("failed to validate postgres flags: %w", err)
		}

		pool, err := postgresstore.NewPool(ctx, flags.poolConfig())
		if err != nil {
			return store.Stores{}, nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}

		log.Info().Msg("Using PostgreSQL stores")
		return postgresstore.NewStores(pool), pool.Close, nil

	default:
		log.Warn().Msg("Using in-memory stores, data is lost on restart")
		return memorystore.NewStores(), func() {}, nil
	}
}

// IdentityFlags configures how sessions are verified and how users sign in.
type IdentityFlags struct {
	JWKSURL       string `help:"identity provider JWKS URL" env:"STATUSPAGE_IDENTITY_JWKS_URL"`
	Issuer        string `help:"expected session token issuer (iss claim)" env:"STATUSPAGE_IDENTITY_ISSUER"`
	WebhookSecret string `help:"identity provider webhook signing secret (whsec_...)" env:"STATUSPAGE_WEBHOOK_SECRET"`
	SignInURL     string `help:"identity provider hosted sign-in URL" env:"STATUSPAGE_IDENTITY_SIGN_IN_URL"`

	ClientID     string `help:"OAuth client ID" env:"STATUSPAGE_IDENTITY_CLIENT_ID"`
	ClientSecret string `help:"OAuth client secret" env:"STATUSPAGE_IDENTITY_CLIENT_SECRET"`
	AuthURL      string `help:"OAuth authorization endpoint" env:"STATUSPAGE_IDENTITY_AUTH_URL"`
	TokenURL     string `help:"OAuth token endpoint" env:"STATUSPAGE_IDENTITY_TOKEN_URL"`
	CallbackURL  string `help:"OAuth redirect URL, usually <base-url>/oauth/callback" env:"STATUSPAGE_IDENTITY_CALLBACK_URL"`

	Dev bool `help:"issue local session tokens instead of using an identity provider (development only)" env:"STATUSPAGE_IDENTITY_DEV"`
}

func (f *IdentityFlags) Validate() error {
	if f.Dev {
		return nil
	}
	if f.JWKSURL == "" {
		return errors.New("identity JWKS URL is required (--identity-jwks-url or STATUSPAGE_IDENTITY_JWKS_URL) unless --identity-dev is set")
	}
	if f.ClientID == "" && f.SignInURL == "" {
		return errors.New("either --identity-client-id or --identity-sign-in-url is required")
	}
	return nil
}

// NATSFlags configures the event feed.
type NATSFlags struct {
	URL           string        `help:"NATS server URL, events are not published when empty" env:"STATUSPAGE_NATS_URL"`
	Username      string        `help:"NATS username" env:"STATUSPAGE_NATS_USERNAME"`
	Password      string        `help:"NATS password" env:"STATUSPAGE_NATS_PASSWORD"`
	ReconnectWait time.Duration `help:"wait between reconnect attempts" default:"2s"`
	MaxReconnects int           `help:"maximum reconnect attempts, -1 for unlimited" default:"-1"`
}

func (f *NATSFlags) Validate() error {
	if f.Password != "" && f.Username == "" {
		return errors.New("--nats-username is required when --nats-password is set")
	}
	return nil
}

func (f *NATSFlags) publisher(name string) (events.Publisher, error) {
	if f.URL == "" {
		log.Info().Msg("NATS URL not set, event feed disabled")
		return events.NopPublisher{}, nil
	}

	return events.ConnectNATS(events.NATSConfig{
		URL:           f.URL,
		Name:          name,
		Username:      f.Username,
		Password:      f.Password,
		ReconnectWait: f.ReconnectWait,
		MaxReconnects: f.MaxReconnects,
	})
}

func parseOptionalUUID(flag, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", flag, err)
	}
	return id, nil
}
