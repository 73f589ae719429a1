package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/statuspage/cmd/statusctl/internal/credentials"
	"github.com/wolfeidau/statuspage/internal/client"
	"github.com/wolfeidau/statuspage/internal/logger"
)

type Globals struct {
	Debug   bool
	Version string

	ServerURL      string
	Token          string
	Profile        string
	CacheDir       string
	CredentialsDir string

	Out io.Writer
}

// client builds an API client. Explicit flags win over the saved profile.
func (g *Globals) client() (*client.Client, error) {
	log.Logger = logger.Setup(g.Debug)

	cfg := client.DefaultConfig()
	cfg.CacheDir = g.CacheDir
	cfg.Debug = g.Debug

	profile, err := g.profile()
	switch {
	case err == nil:
		cfg.ServerURL = profile.ServerURL
		cfg.Token = profile.Token
		log.Debug().Str("profile", profile.Name).Str("fingerprint", profile.Fingerprint).Msg("using saved profile")
	case errors.Is(err, credentials.ErrNoDefaultProfile):
	default:
		return nil, err
	}

	if g.ServerURL != "" {
		cfg.ServerURL = g.ServerURL
	}
	if g.Token != "" {
		cfg.Token = g.Token
	}

	return client.New(cfg)
}

func (g *Globals) profile() (*credentials.Profile, error) {
	store, err := credentials.NewStore(g.CredentialsDir)
	if err != nil {
		return nil, err
	}

	if g.Profile != "" {
		profile, err := store.Get(g.Profile)
		if err != nil {
			return nil, fmt.Errorf("profile %q: %w", g.Profile, err)
		}
		return profile, nil
	}

	return store.GetDefault()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
