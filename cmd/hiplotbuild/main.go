package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/hiplotbuild/cmd/hiplotbuild/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Build   commands.BuildCmd   `cmd:"" help:"Build the bundle and publish it to the static directory"`
		Watch   commands.WatchCmd   `cmd:"" help:"Rebuild and publish on every source change"`
		Publish commands.PublishCmd `cmd:"" help:"Copy an existing bundle to the static directory"`
		Debug   bool                `help:"Enable debug mode."`
		Version kong.VersionFlag
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
