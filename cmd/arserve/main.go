package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/arserve/cmd/arserve/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Serve     commands.ServeCmd     `cmd:"" default:"withargs" help:"Serve the webroot over HTTPS"`
		Bootstrap commands.BootstrapCmd `cmd:"" help:"Generate the TLS certificate pair"`
		Build     commands.BuildCmd     `cmd:"" help:"Bundle the demo's browser scripts"`
		Debug     bool                  `help:"Enable debug mode."`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
