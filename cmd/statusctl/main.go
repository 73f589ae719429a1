package main

import (
	"context"
	"os"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/statuspage/cmd/statusctl/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Status        commands.StatusCmd        `cmd:"" help:"Show an organization's public status page"`
		Services      commands.ServicesCmd      `cmd:"" help:"List services"`
		Incidents     commands.IncidentsCmd     `cmd:"" help:"List incidents"`
		Incident      commands.IncidentCmd      `cmd:"" help:"Manage incidents"`
		Notifications commands.NotificationsCmd `cmd:"" help:"List notifications"`
		Login         commands.LoginCmd         `cmd:"" help:"Save a session token as a profile"`
		Logout        commands.LogoutCmd        `cmd:"" help:"Remove a saved profile"`

		ServerURL      string `help:"Server URL (defaults to the profile's server, then http://localhost:8080)" env:"STATUSCTL_SERVER_URL"`
		Token          string `help:"Session token" env:"STATUSCTL_TOKEN"`
		Profile        string `help:"Saved profile to use instead of the default"`
		CacheDir       string `help:"Directory for cached status pages" env:"STATUSCTL_CACHE_DIR"`
		CredentialsDir string `help:"Directory for saved profiles (default ~/.statuspage/credentials)" hidden:""`
		Debug          bool   `help:"Enable debug mode."`
		Version        kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("statusctl"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:          cli.Debug,
		Version:        version,
		ServerURL:      cli.ServerURL,
		Token:          cli.Token,
		Profile:        cli.Profile,
		CacheDir:       cli.CacheDir,
		CredentialsDir: cli.CredentialsDir,
		Out:            os.Stdout,
	})
	cmd.FatalIfErrorf(err)
}
