package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/statuspage/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug mode."`
		Version kong.VersionFlag
		Server  commands.ServerCmd  `cmd:"" default:"withargs" help:"Start the status page server"`
		Migrate commands.MigrateCmd `cmd:"" help:"Apply database migrations"`
		Org     commands.OrgCmd     `cmd:"" help:"Manage organizations"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("statuspage-server"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
